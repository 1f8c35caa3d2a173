package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ultravioletadao/x402-go/types"
)

// DefaultTimeout bounds a single facilitator request when the caller's
// context carries no deadline.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 4 << 10

// HTTPClient is a facilitator client over the x402 HTTP API.
type HTTPClient struct {
	// BaseURL is the facilitator root, e.g. "https://facilitator.ultravioletadao.xyz".
	BaseURL string

	// Client is the HTTP client to use. If nil, http.DefaultClient is used.
	Client *http.Client

	// Authorization is sent verbatim as the Authorization header when set.
	Authorization string

	// Timeout applies per request when ctx has no deadline. Zero means DefaultTimeout.
	Timeout time.Duration
}

var _ Interface = (*HTTPClient)(nil)

// NewHTTPClient returns a client for baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *HTTPClient) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Verify asks the facilitator whether payload satisfies requirements.
func (c *HTTPClient) Verify(ctx context.Context, payload types.PaymentPayload, requirements types.PaymentRequirements) (*types.VerifyResponse, error) {
	var resp types.VerifyResponse
	rejected, err := c.post(ctx, "/verify", payload, requirements, &resp)
	if err != nil {
		return nil, err
	}
	if rejected {
		resp.IsValid = false
		if resp.InvalidReason == "" {
			return nil, fmt.Errorf("%w: verify rejected without a reason", ErrBadResponse)
		}
	}
	if resp.Payer == "" {
		resp.Payer = payerOf(payload)
	}
	return &resp, nil
}

// Settle asks the facilitator to execute the transfer.
func (c *HTTPClient) Settle(ctx context.Context, payload types.PaymentPayload, requirements types.PaymentRequirements) (*types.SettleResponse, error) {
	var resp types.SettleResponse
	rejected, err := c.post(ctx, "/settle", payload, requirements, &resp)
	if err != nil {
		return nil, err
	}
	if rejected {
		resp.Success = false
		if resp.ErrorReason == "" {
			return nil, fmt.Errorf("%w: settle rejected without a reason", ErrBadResponse)
		}
	}
	if resp.Network == "" {
		resp.Network = requirements.Network
	}
	if resp.Payer == "" {
		resp.Payer = payerOf(payload)
	}
	return &resp, nil
}

// Supported lists the (scheme, network) kinds the facilitator handles.
func (c *HTTPClient) Supported(ctx context.Context) (*types.SupportedResponse, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/supported", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, statusError(httpResp)
	}

	var supported types.SupportedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&supported); err != nil {
		return nil, fmt.Errorf("%w: decode supported response: %v", ErrBadResponse, err)
	}
	return &supported, nil
}

// post sends a verify/settle request and decodes into out. rejected is true
// when a 4xx body was decoded; the caller decides if it is a real rejection.
func (c *HTTPClient) post(ctx context.Context, path string, payload types.PaymentPayload, requirements types.PaymentRequirements, out interface{}) (rejected bool, err error) {
	data, err := json.Marshal(types.VerifyRequest{
		X402Version:         int(types.X402Version1),
		PaymentPayload:      payload,
		PaymentRequirements: requirements,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	httpResp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	defer httpResp.Body.Close()

	switch {
	case httpResp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("%w: decode %s response: %v", ErrBadResponse, path, err)
		}
		return false, nil
	case httpResp.StatusCode >= 400 && httpResp.StatusCode < 500:
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		if err := json.Unmarshal(body, out); err != nil {
			return false, fmt.Errorf("%w: %s: status %d, body: %s", ErrBadResponse, path, httpResp.StatusCode, truncate(body))
		}
		return true, nil
	default:
		return false, statusError(httpResp)
	}
}

func (c *HTTPClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout())
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.Authorization != "" {
		req.Header.Set("Authorization", c.Authorization)
	}
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	base := ErrBadResponse
	if resp.StatusCode >= 500 {
		base = ErrUnavailable
	}
	if len(body) > 0 {
		return fmt.Errorf("%w: status %d, body: %s", base, resp.StatusCode, truncate(body))
	}
	return fmt.Errorf("%w: status %d", base, resp.StatusCode)
}

const maxErrorRunes = 500

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= maxErrorRunes {
		return s
	}
	return string([]rune(s)[:maxErrorRunes]) + "..."
}

func payerOf(payload types.PaymentPayload) string {
	body, err := payload.Body()
	if err != nil || body.Authorization == nil {
		return ""
	}
	return body.Authorization.From
}
