package facilitator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ultravioletadao/x402-go/types"
)

// IPFSGateway serves ipfs:// agent URIs over HTTPS.
const IPFSGateway = "https://ipfs.io/ipfs/"

// AgentRegistrationType is the default "type" of an ERC-8004 registration file.
const AgentRegistrationType = "https://eips.ethereum.org/EIPS/eip-8004#agent-v1"

// ReputationContracts are the ERC-8004 registries deployed on a network.
// Empty fields are not deployed there.
type ReputationContracts struct {
	IdentityRegistry   string
	ReputationRegistry string
	ValidationRegistry string
}

var reputationContracts = map[types.Network]ReputationContracts{
	"ethereum": {
		IdentityRegistry:   "0x8004A169FB4a3325136EB29fA0ceB6D2e539a432",
		ReputationRegistry: "0x8004BAa17C55a88189AE136b182e5fdA19dE9b63",
	},
	"ethereum-sepolia": {
		IdentityRegistry:   "0x8004A818BFB912233c491871b3d84c89A494BD9e",
		ReputationRegistry: "0x8004B663056A597Dffe9eCcC1965A193B7388713",
		ValidationRegistry: "0x8004Cb1BF31DAf7788923b405b754f57acEB4272",
	},
}

// ReputationContractsFor returns the registries on network, if any.
func ReputationContractsFor(network types.Network) (ReputationContracts, bool) {
	c, ok := reputationContracts[network]
	return c, ok
}

type AgentIdentity struct {
	AgentID     uint64 `json:"agentId"`
	Owner       string `json:"owner"`
	AgentURI    string `json:"agentUri"`
	AgentWallet string `json:"agentWallet,omitempty"`
	Network     string `json:"network"`
}

type AgentService struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Version  string `json:"version,omitempty"`
}

type AgentRegistration struct {
	AgentID       uint64 `json:"agentId"`
	AgentRegistry string `json:"agentRegistry"`
}

// AgentRegistrationFile is the document an agent URI points at.
type AgentRegistrationFile struct {
	Type           string              `json:"type"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Image          string              `json:"image,omitempty"`
	Services       []AgentService      `json:"services"`
	X402Support    bool                `json:"x402Support"`
	Active         bool                `json:"active"`
	Registrations  []AgentRegistration `json:"registrations"`
	SupportedTrust []string            `json:"supportedTrust"`
}

type ReputationSummary struct {
	AgentID              uint64 `json:"agentId"`
	Count                uint64 `json:"count"`
	SummaryValue         int64  `json:"summaryValue"`
	SummaryValueDecimals int    `json:"summaryValueDecimals"`
	Network              string `json:"network"`
}

type FeedbackEntry struct {
	Client        string `json:"client"`
	FeedbackIndex uint64 `json:"feedbackIndex"`
	Value         int64  `json:"value"`
	ValueDecimals int    `json:"valueDecimals"`
	Tag1          string `json:"tag1"`
	Tag2          string `json:"tag2"`
	IsRevoked     bool   `json:"isRevoked"`
}

type ReputationResponse struct {
	AgentID  uint64            `json:"agentId"`
	Summary  ReputationSummary `json:"summary"`
	Feedback []FeedbackEntry   `json:"feedback,omitempty"`
	Network  string            `json:"network"`
}

// ReputationQuery narrows GetReputation.
type ReputationQuery struct {
	Tag1            string
	Tag2            string
	IncludeFeedback bool
}

// Feedback is one rating of an agent. Proof is required by registries that
// only accept feedback from paying clients.
type Feedback struct {
	AgentID       uint64                `json:"agentId"`
	Value         int64                 `json:"value"`
	ValueDecimals int                   `json:"valueDecimals"`
	Tag1          string                `json:"tag1"`
	Tag2          string                `json:"tag2"`
	Endpoint      string                `json:"endpoint"`
	FeedbackURI   string                `json:"feedbackUri"`
	FeedbackHash  string                `json:"feedbackHash,omitempty"`
	Proof         *types.ProofOfPayment `json:"proof,omitempty"`
}

// FeedbackResponse is the facilitator's answer to a feedback write. A write
// the facilitator refuses has Success false and Error set.
type FeedbackResponse struct {
	Success       bool    `json:"success"`
	Transaction   string  `json:"transaction,omitempty"`
	FeedbackIndex *uint64 `json:"feedbackIndex,omitempty"`
	Error         string  `json:"error,omitempty"`
	Network       string  `json:"network"`
}

type feedbackRequest struct {
	X402Version int      `json:"x402Version"`
	Network     string   `json:"network"`
	Feedback    Feedback `json:"feedback"`
}

type revokeRequest struct {
	X402Version   int    `json:"x402Version"`
	Network       string `json:"network"`
	AgentID       uint64 `json:"agentId"`
	FeedbackIndex uint64 `json:"feedbackIndex"`
}

type responseRequest struct {
	X402Version   int    `json:"x402Version"`
	Network       string `json:"network"`
	AgentID       uint64 `json:"agentId"`
	FeedbackIndex uint64 `json:"feedbackIndex"`
	Response      string `json:"response"`
	ResponseURI   string `json:"responseUri,omitempty"`
}

// ReputationClient reads ERC-8004 agent identity and reputation and writes
// feedback through the facilitator's HTTP API.
type ReputationClient struct {
	API *HTTPClient

	// Gateway replaces the ipfs:// prefix of agent URIs.
	Gateway string
}

// NewReputationClient reuses api's base URL, credentials and timeout.
func NewReputationClient(api *HTTPClient) *ReputationClient {
	return &ReputationClient{API: api, Gateway: IPFSGateway}
}

func checkReputationNetwork(network types.Network) error {
	if _, ok := reputationContracts[network]; !ok {
		return types.NewError(types.ErrCodeUnknownNetwork, types.ErrUnknownNetwork,
			"ERC-8004 registries are not deployed on %s", network)
	}
	return nil
}

func agentPath(prefix string, network types.Network, agentID uint64) string {
	return fmt.Sprintf("/%s/%s/%d", prefix, url.PathEscape(network.String()), agentID)
}

func (c *ReputationClient) GetIdentity(ctx context.Context, network types.Network, agentID uint64) (*AgentIdentity, error) {
	if err := checkReputationNetwork(network); err != nil {
		return nil, err
	}
	var identity AgentIdentity
	if err := c.API.do(ctx, http.MethodGet, agentPath("identity", network, agentID), nil, nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// ResolveAgentURI fetches the registration file an identity points at.
// ipfs:// URIs go through the gateway.
func (c *ReputationClient) ResolveAgentURI(ctx context.Context, agentURI string) (*AgentRegistrationFile, error) {
	target := agentURI
	if cid, ok := strings.CutPrefix(agentURI, "ipfs://"); ok {
		gateway := c.Gateway
		if gateway == "" {
			gateway = IPFSGateway
		}
		target = gateway + cid
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, fmt.Errorf("unsupported agent URI %q", agentURI)
	}

	// The file lives on a third-party host; facilitator credentials stay home.
	anon := &HTTPClient{Client: c.API.Client, Timeout: c.API.Timeout}
	file := AgentRegistrationFile{Type: AgentRegistrationType, Active: true}
	if err := anon.doURL(ctx, http.MethodGet, u.String(), nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *ReputationClient) GetReputation(ctx context.Context, network types.Network, agentID uint64, q ReputationQuery) (*ReputationResponse, error) {
	if err := checkReputationNetwork(network); err != nil {
		return nil, err
	}
	params := url.Values{}
	if q.Tag1 != "" {
		params.Set("tag1", q.Tag1)
	}
	if q.Tag2 != "" {
		params.Set("tag2", q.Tag2)
	}
	if q.IncludeFeedback {
		params.Set("includeFeedback", strconv.FormatBool(true))
	}

	var rep ReputationResponse
	if err := c.API.do(ctx, http.MethodGet, agentPath("reputation", network, agentID), params, nil, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// SubmitFeedback records feedback for an agent, usually with the proof of
// payment returned at settlement.
func (c *ReputationClient) SubmitFeedback(ctx context.Context, network types.Network, fb Feedback) (*FeedbackResponse, error) {
	if fb.ValueDecimals < 0 || fb.ValueDecimals > 18 {
		return nil, types.Malformed("feedback valueDecimals %d is outside 0-18", fb.ValueDecimals)
	}
	return c.writeFeedback(ctx, network, "/feedback", feedbackRequest{
		X402Version: int(types.X402Version1),
		Network:     network.String(),
		Feedback:    fb,
	})
}

func (c *ReputationClient) RevokeFeedback(ctx context.Context, network types.Network, agentID, feedbackIndex uint64) (*FeedbackResponse, error) {
	return c.writeFeedback(ctx, network, "/feedback/revoke", revokeRequest{
		X402Version:   int(types.X402Version1),
		Network:       network.String(),
		AgentID:       agentID,
		FeedbackIndex: feedbackIndex,
	})
}

// AppendResponse lets the agent answer feedback it received.
func (c *ReputationClient) AppendResponse(ctx context.Context, network types.Network, agentID, feedbackIndex uint64, response, responseURI string) (*FeedbackResponse, error) {
	return c.writeFeedback(ctx, network, "/feedback/response", responseRequest{
		X402Version:   int(types.X402Version1),
		Network:       network.String(),
		AgentID:       agentID,
		FeedbackIndex: feedbackIndex,
		Response:      response,
		ResponseURI:   responseURI,
	})
}

// FeedbackMetadata describes the facilitator's /feedback endpoint.
func (c *ReputationClient) FeedbackMetadata(ctx context.Context) (map[string]interface{}, error) {
	var meta map[string]interface{}
	if err := c.API.do(ctx, http.MethodGet, "/feedback", nil, nil, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// A 4xx is the facilitator refusing the write: it becomes an unsuccessful
// response, not an error.
func (c *ReputationClient) writeFeedback(ctx context.Context, network types.Network, path string, body interface{}) (*FeedbackResponse, error) {
	if err := checkReputationNetwork(network); err != nil {
		return nil, err
	}
	var resp FeedbackResponse
	err := c.API.do(ctx, http.MethodPost, path, nil, body, &resp)
	if msg, ok := rejectedMessage(err); ok {
		return &FeedbackResponse{Success: false, Error: msg, Network: network.String()}, nil
	}
	if err != nil {
		return nil, err
	}
	if resp.Network == "" {
		resp.Network = network.String()
	}
	return &resp, nil
}
