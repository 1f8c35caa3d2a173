package facilitator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ultravioletadao/x402-go/types"
)

const (
	// DefaultEscrowURL is the hosted escrow API.
	DefaultEscrowURL = "https://escrow.ultravioletadao.xyz"

	// DefaultEscrowDuration is how long funds are held when the caller does
	// not say.
	DefaultEscrowDuration = 24 * time.Hour

	defaultEscrowPageSize = 20
)

type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
	EscrowDisputed EscrowStatus = "disputed"
	EscrowExpired  EscrowStatus = "expired"
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundApproved  RefundStatus = "approved"
	RefundRejected  RefundStatus = "rejected"
	RefundProcessed RefundStatus = "processed"
	RefundDisputed  RefundStatus = "disputed"
)

type DisputeOutcome string

const (
	DisputePending       DisputeOutcome = "pending"
	DisputePayerWins     DisputeOutcome = "payer_wins"
	DisputeRecipientWins DisputeOutcome = "recipient_wins"
	DisputeSplit         DisputeOutcome = "split"
)

// ReleaseConditions gate when held funds may be released.
type ReleaseConditions struct {
	MinHoldTime   int             `json:"minHoldTime,omitempty"` // seconds after creation
	Confirmations int             `json:"confirmations,omitempty"`
	Custom        json.RawMessage `json:"custom,omitempty"`
}

// Escrow is a payment held by the escrow service.
type Escrow struct {
	ID                string             `json:"id"`
	PaymentHeader     string             `json:"paymentHeader"`
	Status            EscrowStatus       `json:"status"`
	Network           string             `json:"network"`
	Payer             string             `json:"payer"`
	Recipient         string             `json:"recipient"`
	Amount            string             `json:"amount"`
	Asset             string             `json:"asset"`
	Resource          string             `json:"resource"`
	ExpiresAt         time.Time          `json:"expiresAt"`
	ReleaseConditions *ReleaseConditions `json:"releaseConditions,omitempty"`
	TransactionHash   string             `json:"transactionHash,omitempty"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Expired reports whether the hold period ended before now.
func (e *Escrow) Expired(now time.Time) bool {
	return e.ExpiresAt.Before(now)
}

// TimeRemaining is the time left until expiry; negative once expired.
func (e *Escrow) TimeRemaining(now time.Time) time.Duration {
	return e.ExpiresAt.Sub(now)
}

// CanRelease reports whether the escrow is held, unexpired and past its
// minimum hold time.
func (e *Escrow) CanRelease(now time.Time) bool {
	if e.Status != EscrowHeld || e.Expired(now) {
		return false
	}
	if rc := e.ReleaseConditions; rc != nil && rc.MinHoldTime > 0 {
		if now.Before(e.CreatedAt.Add(time.Duration(rc.MinHoldTime) * time.Second)) {
			return false
		}
	}
	return true
}

// CanRefund reports whether a refund may still be requested.
func (e *Escrow) CanRefund() bool {
	return e.Status == EscrowHeld || e.Status == EscrowPending
}

// RefundResponse is the recipient's answer to a refund request.
type RefundResponse struct {
	Status      RefundStatus `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	RespondedAt time.Time    `json:"respondedAt"`
}

type RefundRequest struct {
	ID              string          `json:"id"`
	EscrowID        string          `json:"escrowId"`
	Status          RefundStatus    `json:"status"`
	Reason          string          `json:"reason"`
	Evidence        string          `json:"evidence,omitempty"`
	AmountRequested string          `json:"amountRequested"`
	AmountApproved  string          `json:"amountApproved,omitempty"`
	Requester       string          `json:"requester"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	Response        *RefundResponse `json:"response,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Dispute struct {
	ID                string         `json:"id"`
	EscrowID          string         `json:"escrowId"`
	RefundRequestID   string         `json:"refundRequestId,omitempty"`
	Outcome           DisputeOutcome `json:"outcome"`
	Initiator         string         `json:"initiator"` // "payer" or "recipient"
	Reason            string         `json:"reason"`
	PayerEvidence     string         `json:"payerEvidence,omitempty"`
	RecipientEvidence string         `json:"recipientEvidence,omitempty"`
	ArbitrationNotes  string         `json:"arbitrationNotes,omitempty"`
	PayerAmount       string         `json:"payerAmount,omitempty"`
	RecipientAmount   string         `json:"recipientAmount,omitempty"`
	TransactionHashes []string       `json:"transactionHashes,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	ResolvedAt        *time.Time     `json:"resolvedAt,omitempty"`
}

// EscrowList is one page of ListEscrows.
type EscrowList struct {
	Escrows []Escrow `json:"escrows"`
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	HasMore bool     `json:"hasMore"`
}

// EscrowOptions tune CreateEscrow.
type EscrowOptions struct {
	Duration          time.Duration // zero means DefaultEscrowDuration
	ReleaseConditions *ReleaseConditions
}

// RefundOptions are the optional parts of a refund request. An empty Amount
// asks for the full escrowed amount.
type RefundOptions struct {
	Amount   string
	Evidence string
}

// EscrowFilter narrows ListEscrows. Zero Page and Limit mean 1 and 20.
type EscrowFilter struct {
	Page      int
	Limit     int
	Status    EscrowStatus
	Payer     string
	Recipient string
}

type createEscrowRequest struct {
	PaymentHeader       string                    `json:"paymentHeader"`
	PaymentRequirements types.PaymentRequirements `json:"paymentRequirements"`
	EscrowDuration      int                       `json:"escrowDuration"`
	ReleaseConditions   *ReleaseConditions        `json:"releaseConditions,omitempty"`
}

type refundRequestBody struct {
	Reason   string `json:"reason"`
	Amount   string `json:"amount,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// EscrowClient talks to the escrow API: payments held until released,
// refunds and disputes.
type EscrowClient struct {
	API *HTTPClient
}

// NewEscrowClient returns a client for baseURL, or DefaultEscrowURL when
// empty. apiKey is sent as a bearer token when set.
func NewEscrowClient(baseURL, apiKey string) *EscrowClient {
	if baseURL == "" {
		baseURL = DefaultEscrowURL
	}
	api := NewHTTPClient(baseURL)
	if apiKey != "" {
		api.Authorization = "Bearer " + apiKey
	}
	return &EscrowClient{API: api}
}

// CreateEscrow holds the payment in paymentHeader (an X-PAYMENT value)
// instead of settling it to the recipient.
func (c *EscrowClient) CreateEscrow(ctx context.Context, paymentHeader string, req types.PaymentRequirements, opts EscrowOptions) (*Escrow, error) {
	if paymentHeader == "" {
		return nil, types.Malformed("payment header is required")
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultEscrowDuration
	}

	var escrow Escrow
	err := c.API.do(ctx, http.MethodPost, "/escrow", nil, createEscrowRequest{
		PaymentHeader:       paymentHeader,
		PaymentRequirements: req,
		EscrowDuration:      int(duration / time.Second),
		ReleaseConditions:   opts.ReleaseConditions,
	}, &escrow)
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

func (c *EscrowClient) GetEscrow(ctx context.Context, escrowID string) (*Escrow, error) {
	return c.escrow(ctx, http.MethodGet, escrowID, "")
}

// Release pays the held funds to the recipient.
func (c *EscrowClient) Release(ctx context.Context, escrowID string) (*Escrow, error) {
	return c.escrow(ctx, http.MethodPost, escrowID, "/release")
}

func (c *EscrowClient) escrow(ctx context.Context, method, escrowID, suffix string) (*Escrow, error) {
	id, err := pathID("escrow", escrowID)
	if err != nil {
		return nil, err
	}
	var escrow Escrow
	if err := c.API.do(ctx, method, "/escrow/"+id+suffix, nil, nil, &escrow); err != nil {
		return nil, err
	}
	return &escrow, nil
}

// RequestRefund asks the recipient to return some or all of an escrow.
func (c *EscrowClient) RequestRefund(ctx context.Context, escrowID, reason string, opts RefundOptions) (*RefundRequest, error) {
	id, err := pathID("escrow", escrowID)
	if err != nil {
		return nil, err
	}
	var refund RefundRequest
	err = c.API.do(ctx, http.MethodPost, "/escrow/"+id+"/refund", nil, refundRequestBody{
		Reason:   reason,
		Amount:   opts.Amount,
		Evidence: opts.Evidence,
	}, &refund)
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// ApproveRefund approves a refund; an empty amount approves what was asked.
func (c *EscrowClient) ApproveRefund(ctx context.Context, refundID, amount string) (*RefundRequest, error) {
	body := map[string]string{}
	if amount != "" {
		body["amount"] = amount
	}
	return c.refund(ctx, http.MethodPost, refundID, "/approve", body)
}

func (c *EscrowClient) RejectRefund(ctx context.Context, refundID, reason string) (*RefundRequest, error) {
	return c.refund(ctx, http.MethodPost, refundID, "/reject", map[string]string{"reason": reason})
}

func (c *EscrowClient) GetRefund(ctx context.Context, refundID string) (*RefundRequest, error) {
	return c.refund(ctx, http.MethodGet, refundID, "", nil)
}

func (c *EscrowClient) refund(ctx context.Context, method, refundID, suffix string, body interface{}) (*RefundRequest, error) {
	id, err := pathID("refund", refundID)
	if err != nil {
		return nil, err
	}
	var refund RefundRequest
	if err := c.API.do(ctx, method, "/refund/"+id+suffix, nil, body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// OpenDispute escalates an escrow to arbitration.
func (c *EscrowClient) OpenDispute(ctx context.Context, escrowID, reason, evidence string) (*Dispute, error) {
	id, err := pathID("escrow", escrowID)
	if err != nil {
		return nil, err
	}
	body := map[string]string{"reason": reason}
	if evidence != "" {
		body["evidence"] = evidence
	}
	var dispute Dispute
	if err := c.API.do(ctx, http.MethodPost, "/escrow/"+id+"/dispute", nil, body, &dispute); err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (c *EscrowClient) SubmitEvidence(ctx context.Context, disputeID, evidence string) (*Dispute, error) {
	return c.dispute(ctx, http.MethodPost, disputeID, "/evidence", map[string]string{"evidence": evidence})
}

func (c *EscrowClient) GetDispute(ctx context.Context, disputeID string) (*Dispute, error) {
	return c.dispute(ctx, http.MethodGet, disputeID, "", nil)
}

func (c *EscrowClient) dispute(ctx context.Context, method, disputeID, suffix string, body interface{}) (*Dispute, error) {
	id, err := pathID("dispute", disputeID)
	if err != nil {
		return nil, err
	}
	var dispute Dispute
	if err := c.API.do(ctx, method, "/dispute/"+id+suffix, nil, body, &dispute); err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (c *EscrowClient) ListEscrows(ctx context.Context, filter EscrowFilter) (*EscrowList, error) {
	page, limit := filter.Page, filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultEscrowPageSize
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Payer != "" {
		q.Set("payer", filter.Payer)
	}
	if filter.Recipient != "" {
		q.Set("recipient", filter.Recipient)
	}

	var list EscrowList
	if err := c.API.do(ctx, http.MethodGet, "/escrow", q, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// HealthCheck returns nil when the escrow API answers /health with a 2xx.
func (c *EscrowClient) HealthCheck(ctx context.Context) error {
	return c.API.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}
