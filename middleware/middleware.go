// Package middleware puts an x402 paywall in front of HTTP handlers. Requests
// without an X-PAYMENT header get a 402 challenge; paid requests are verified
// and settled before the handler runs.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ultravioletadao/x402-go/logger"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

const (
	HeaderPayment         = "X-PAYMENT"
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
)

type contextKey struct{}

// Processor is the part of the x402 client the paywall needs.
type Processor interface {
	ProcessPayment(ctx context.Context, payload *types.PaymentPayload) (*types.SettlementResult, error)
	PaymentRequired(resource string, symbols ...string) (*types.X402Response, error)
}

// Config tunes the paywall.
type Config struct {
	// Symbols offered in the 402 challenge. Empty means each network's default token.
	Symbols []string

	// ExemptPaths are path prefixes served without payment.
	ExemptPaths []string

	// Resource overrides the resource URL in the challenge. Empty means the request URL.
	Resource string

	Logger logger.Logger
}

// PaymentFromContext returns the settlement result stored by the paywall.
func PaymentFromContext(ctx context.Context) (*types.SettlementResult, bool) {
	res, ok := ctx.Value(contextKey{}).(*types.SettlementResult)
	return res, ok
}

// New returns net/http middleware guarding next with p.
func New(p Processor, cfg Config) func(http.Handler) http.Handler {
	pw := newPaywall(p, cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := pw.evaluate(r)
			if out.exempt {
				next.ServeHTTP(w, r)
				return
			}
			if out.result == nil {
				writeJSON(w, out.status, out.body)
				return
			}
			if out.header != "" {
				w.Header().Set(HeaderPaymentResponse, out.header)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, out.result)))
		})
	}
}

type paywall struct {
	processor Processor
	cfg       Config
	log       logger.Logger
}

func newPaywall(p Processor, cfg Config) *paywall {
	log := cfg.Logger
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &paywall{processor: p, cfg: cfg, log: log}
}

// outcome is a response to write, a settled payment, or an exempt request.
type outcome struct {
	exempt bool
	status int
	body   interface{}
	result *types.SettlementResult
	header string
}

type errorBody struct {
	X402Version int    `json:"x402Version"`
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
}

func (pw *paywall) evaluate(r *http.Request) outcome {
	for _, prefix := range pw.cfg.ExemptPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return outcome{exempt: true}
		}
	}

	fields := map[string]any{"path": r.URL.Path}

	header := r.Header.Get(HeaderPayment)
	if header == "" {
		pw.log.Debug("no payment header provided", fields)
		return pw.challenge(r, "")
	}

	payload, err := utils.DecodePaymentHeader(header)
	if err != nil {
		pw.log.Warn("invalid payment header", logger.Merge(fields, map[string]any{"error": err}))
		return outcome{status: http.StatusBadRequest, body: errorBody{X402Version: 1, Error: err.Error(), Code: types.ErrorCode(err)}}
	}

	result, err := pw.processor.ProcessPayment(r.Context(), payload)
	switch {
	case result == nil:
		if err == nil {
			err = types.Malformed("payment could not be processed")
		}
		status := http.StatusBadRequest
		if types.ErrorCode(err) == types.ErrCodeConfigError {
			status = http.StatusInternalServerError
		}
		return outcome{status: status, body: errorBody{X402Version: 1, Error: err.Error(), Code: types.ErrorCode(err)}}
	case result.Status == types.StatusFacilitatorError:
		return outcome{status: http.StatusBadGateway, body: errorBody{X402Version: 1, Error: "payment facilitator unavailable", Code: types.ErrCodeFacilitator}}
	case result.Status == types.StatusRejected:
		return pw.challenge(r, result.Reason)
	}

	encoded, err := utils.EncodeHeader(types.SettleResponse{
		Success:     true,
		Transaction: result.Transaction,
		Network:     result.Network,
		Payer:       result.Payer,
	})
	if err != nil {
		pw.log.Warn("failed to encode payment response header", logger.Merge(fields, map[string]any{"error": err}))
	}
	return outcome{result: result, header: encoded}
}

func (pw *paywall) challenge(r *http.Request, reason string) outcome {
	resource := pw.cfg.Resource
	if resource == "" {
		resource = requestURL(r)
	}

	resp, err := pw.processor.PaymentRequired(resource, pw.cfg.Symbols...)
	if err != nil {
		pw.log.Error("failed to build payment challenge", map[string]any{"error": err})
		return outcome{status: http.StatusInternalServerError, body: errorBody{X402Version: 1, Error: "payment configuration error"}}
	}
	if reason != "" {
		resp.Error = reason
	}
	return outcome{status: http.StatusPaymentRequired, body: resp}
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
