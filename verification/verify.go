// Package verification prechecks EVM exact-scheme payments locally before
// they are sent to a facilitator.
package verification

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

// Invalid reasons, using the facilitator's vocabulary.
const (
	ReasonInvalidPayload     = "invalid_payload"
	ReasonInvalidSignature   = "invalid_exact_evm_payload_signature"
	ReasonRecipientMismatch  = "invalid_exact_evm_payload_recipient_mismatch"
	ReasonInsufficientValue  = "invalid_exact_evm_payload_authorization_value"
	ReasonNotYetValid        = "invalid_exact_evm_payload_authorization_valid_after"
	ReasonExpired            = "invalid_exact_evm_payload_authorization_valid_before"
	ReasonNetworkMismatch    = "invalid_network"
	ReasonUnsupportedNetwork = "unsupported_network"
)

// Result is the outcome of a local precheck.
type Result struct {
	Valid         bool
	Skipped       bool // non-EVM payments are not prechecked
	Signer        string
	InvalidReason string
	Error         string
}

func invalid(reason, format string, args ...interface{}) *Result {
	return &Result{InvalidReason: reason, Error: fmt.Sprintf(format, args...)}
}

// Verifier checks EIP-3009 authorizations against requirements built for the
// same payload.
type Verifier struct {
	registry *networks.Registry
	now      func() time.Time
}

// NewVerifier returns a Verifier over registry.
func NewVerifier(registry *networks.Registry) *Verifier {
	return &Verifier{registry: registry, now: time.Now}
}

// WithClock replaces the time source used for validAfter / validBefore.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	return &Verifier{registry: v.registry, now: now}
}

// Verify runs the precheck. A non-nil error means the inputs could not be
// checked at all; a rejected payment is a Result with Valid false.
func (v *Verifier) Verify(payload *types.PaymentPayload, req *types.PaymentRequirements) (*Result, error) {
	if payload == nil || req == nil {
		return nil, types.Malformed("payload and requirements are required")
	}
	if err := req.Validate(); err != nil {
		return nil, types.Malformed("%v", err)
	}

	if !strings.EqualFold(string(payload.Network), req.Network) {
		return invalid(ReasonNetworkMismatch, "payload network %s does not match requirements network %s", payload.Network, req.Network), nil
	}

	cfg, err := v.registry.Lookup(payload.Network)
	if err != nil {
		return nil, err
	}
	if !cfg.Family.UsesEIP712() {
		return &Result{Valid: true, Skipped: true}, nil
	}

	body, err := payload.Body()
	if err != nil {
		return nil, types.Malformed("%v", err)
	}
	if body.Authorization == nil || body.Signature == "" {
		return invalid(ReasonInvalidPayload, "exact EVM payload needs signature and authorization"), nil
	}
	return v.verifyEVM(cfg, body, req)
}

func (v *Verifier) verifyEVM(cfg networks.NetworkConfig, body *types.PayloadBody, req *types.PaymentRequirements) (*Result, error) {
	auth := body.Authorization

	if err := utils.ValidateStruct(auth); err != nil {
		return invalid(ReasonInvalidPayload, "authorization: %v", err), nil
	}
	if err := utils.ValidateNonce(auth.Nonce); err != nil {
		return invalid(ReasonInvalidPayload, "authorization: %v", err), nil
	}
	for _, addr := range []string{auth.From, auth.To} {
		if err := utils.ValidateAddressForFamily(cfg.Family, addr); err != nil {
			return invalid(ReasonInvalidPayload, "authorization: %v", err), nil
		}
	}

	amounts := make(map[string]*big.Int, 3)
	for _, f := range []struct{ field, raw string }{
		{"value", auth.Value},
		{"validAfter", auth.ValidAfter},
		{"validBefore", auth.ValidBefore},
	} {
		n, ok := new(big.Int).SetString(f.raw, 10)
		if !ok || n.Sign() < 0 {
			return invalid(ReasonInvalidPayload, "authorization.%s %q is not a uint256", f.field, f.raw), nil
		}
		amounts[f.field] = n
	}

	digest, err := Digest(DomainFor(req, cfg.ChainID), auth)
	if err != nil {
		return invalid(ReasonInvalidPayload, "%v", err), nil
	}
	signer, err := RecoverSigner(digest, body.Signature)
	if err != nil {
		return invalid(ReasonInvalidSignature, "%v", err), nil
	}
	if signer != common.HexToAddress(auth.From) {
		return invalid(ReasonInvalidSignature, "signature recovers %s, authorization is from %s", signer.Hex(), auth.From), nil
	}

	if req.PayTo != "" && !utils.SameAddress(cfg.Family, auth.To, req.PayTo) {
		return invalid(ReasonRecipientMismatch, "authorization pays %s, requirements pay %s", auth.To, req.PayTo), nil
	}

	value := amounts["value"]
	required, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
	if !ok {
		return nil, types.Malformed("maxAmountRequired %q is not an integer", req.MaxAmountRequired)
	}
	if value.Cmp(required) < 0 {
		return invalid(ReasonInsufficientValue, "authorization value %s is below %s", auth.Value, req.MaxAmountRequired), nil
	}

	now := big.NewInt(v.now().Unix())
	if amounts["validAfter"].Cmp(now) > 0 {
		return invalid(ReasonNotYetValid, "authorization valid after %s", auth.ValidAfter), nil
	}
	if amounts["validBefore"].Cmp(now) <= 0 {
		return invalid(ReasonExpired, "authorization expired at %s", auth.ValidBefore), nil
	}

	return &Result{Valid: true, Signer: strings.ToLower(signer.Hex())}, nil
}
