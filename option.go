package x402

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ultravioletadao/x402-go/logger"
	"github.com/ultravioletadao/x402-go/metrics"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

type Option func(*X402)

func WithLogger(l logger.Logger) Option {
	return func(x *X402) {
		if l != nil {
			x.logger = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(x *X402) {
		if r != nil {
			x.metrics = r
		}
	}
}

// WithTimeout bounds the facilitator round trip (verify plus settle).
func WithTimeout(t time.Duration) Option {
	return func(x *X402) {
		if t > 0 {
			x.timeout = t
		}
	}
}

// WithPrice sets the default price in whole token units.
func WithPrice(price decimal.Decimal) Option {
	return func(x *X402) {
		x.price = decimal.NewNullDecimal(price)
	}
}

// WithPayTo sets the recipient for every network of family.
func WithPayTo(family types.ChainFamily, address string) Option {
	return func(x *X402) {
		x.payTo[family] = utils.NormalizeAddress(family, address)
	}
}

// WithResource sets the resource URL, description and MIME type placed in
// every requirements object.
func WithResource(resource, description, mimeType string) Option {
	return func(x *X402) {
		x.resource = resource
		x.description = description
		x.mimeType = mimeType
	}
}

func WithMaxTimeoutSeconds(seconds int) Option {
	return func(x *X402) {
		x.maxTimeout = seconds
	}
}

// WithVerifyOnly skips settlement; a verified payment is reported settled
// with VerifiedOnly set.
func WithVerifyOnly(v bool) Option {
	return func(x *X402) {
		x.verifyOnly = v
	}
}

// WithSignaturePrecheck recovers the EVM signer locally before calling the
// facilitator, so a domain mismatch is rejected without a round trip.
func WithSignaturePrecheck(v bool) Option {
	return func(x *X402) {
		x.precheck = v
	}
}

// WithReputationProof marks every built requirements object with the
// ERC-8004 reputation extension, so settlement returns a proof of payment.
func WithReputationProof(v bool) Option {
	return func(x *X402) {
		x.reputationProof = v
	}
}
