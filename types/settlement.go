package types

// PaymentStage is a step of a single ProcessPayment call. Stages are not
// persisted; they describe how far a call got.
type PaymentStage string

const (
	StageReceived      PaymentStage = "RECEIVED"
	StageTokenResolved PaymentStage = "TOKEN_RESOLVED"
	StageRequirements  PaymentStage = "REQUIREMENTS_BUILT"
	StageDispatched    PaymentStage = "DISPATCHED_TO_FACILITATOR"
)

// SettlementStatus is the terminal outcome of a dispatched payment.
type SettlementStatus string

const (
	StatusSettled          SettlementStatus = "VERIFIED_AND_SETTLED"
	StatusRejected         SettlementStatus = "REJECTED"
	StatusFacilitatorError SettlementStatus = "FACILITATOR_ERROR"
)

// SettlementResult contains the result of payment processing
type SettlementResult struct {
	PaymentID   string           `json:"paymentId"`
	Status      SettlementStatus `json:"status"`
	Stage       PaymentStage     `json:"stage"`
	Network     string           `json:"network"`
	Symbol      string           `json:"symbol,omitempty"`
	Payer       string           `json:"payer,omitempty"`
	Transaction string           `json:"transaction,omitempty"`

	// Reason carries the facilitator's invalidReason / errorReason for
	// rejections, or the transport error text for facilitator errors.
	Reason string `json:"reason,omitempty"`

	// VerifiedOnly is set when settlement was skipped by configuration.
	VerifiedOnly bool `json:"verifiedOnly,omitempty"`

	Requirements *PaymentRequirements `json:"requirements,omitempty"`

	// ProofOfPayment is returned by facilitators that honor the
	// ReputationExtension; it is needed to leave ERC-8004 feedback.
	ProofOfPayment *ProofOfPayment `json:"proofOfPayment,omitempty"`
}

// Success reports whether the payment reached VERIFIED_AND_SETTLED.
func (r *SettlementResult) Success() bool {
	return r != nil && r.Status == StatusSettled
}
