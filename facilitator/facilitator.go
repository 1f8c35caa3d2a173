// Package facilitator talks to a remote x402 facilitator that verifies
// payment signatures and settles transfers on chain.
package facilitator

import (
	"context"
	"errors"

	"github.com/ultravioletadao/x402-go/types"
)

var (
	// ErrUnavailable marks transport failures, timeouts and 5xx responses.
	// The payment outcome is unknown when this is returned.
	ErrUnavailable = errors.New("facilitator unavailable")

	// ErrBadResponse marks a response that could not be interpreted.
	ErrBadResponse = errors.New("facilitator returned an unexpected response")

	// ErrRejected marks a 4xx answer from the escrow or reputation APIs.
	ErrRejected = errors.New("request rejected")

	// ErrNotFound marks a 404 from the escrow or reputation APIs.
	ErrNotFound = errors.New("not found")
)

// Interface is the facilitator boundary. A payment the facilitator refuses is
// a response with IsValid / Success false and a nil error; errors are kept
// for cases where no authoritative answer was obtained.
type Interface interface {
	Verify(ctx context.Context, payload types.PaymentPayload, requirements types.PaymentRequirements) (*types.VerifyResponse, error)
	Settle(ctx context.Context, payload types.PaymentPayload, requirements types.PaymentRequirements) (*types.SettleResponse, error)
	Supported(ctx context.Context) (*types.SupportedResponse, error)
}
