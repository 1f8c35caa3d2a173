package types

import (
	"encoding/json"
	"fmt"
)

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// PaymentScheme represents different payment schemes
type PaymentScheme string

const (
	SchemeExact PaymentScheme = "exact"
)

type SupportedItem struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

type SupportedResponse struct {
	Kinds []SupportedItem `json:"kinds"`
}

// PaymentRequirements defines the requirements a resource server accepts for payment.
type PaymentRequirements struct {
	// Scheme of the payment protocol to use (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network of the blockchain to send payment on (e.g., "base").
	Network string `json:"network"`

	// Maximum amount required to pay for the resource in atomic units of the asset.
	// Represented as a string because Go does not support uint256.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// URL of the resource to pay for.
	Resource string `json:"resource"`

	// Description of the resource being purchased.
	Description string `json:"description"`

	// MIME type of the resource response (e.g., "application/json").
	MimeType string `json:"mimeType"`

	// Output schema of the resource response, if applicable.
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo"`

	// Maximum time in seconds for the resource server to respond.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Token contract address (EVM) or mint / asset identifier (non-EVM).
	Asset string `json:"asset"`

	// Extra information about payment details specific to the scheme.
	// For the `exact` scheme on EVM this holds the EIP-712 domain `name` and `version`.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// EIP712Name returns extra.name, or "" when absent.
func (pr *PaymentRequirements) EIP712Name() string {
	s, _ := pr.Extra["name"].(string)
	return s
}

// EIP712Version returns extra.version, or "" when absent.
func (pr *PaymentRequirements) EIP712Version() string {
	s, _ := pr.Extra["version"].(string)
	return s
}

// X402Response is the body of a 402 Payment Required response.
type X402Response struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	// List of payment requirements that the resource server accepts.
	Accepts []PaymentRequirements `json:"accepts"`

	// Message from the resource server indicating any processing error.
	Error string `json:"error"`
}

// PaymentPayload is the decoded X-PAYMENT header sent by the client.
type PaymentPayload struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version" validate:"gte=0"`

	Scheme string `json:"scheme,omitempty"`

	Network Network `json:"network" validate:"required"`

	// Scheme-specific payload, kept verbatim so the facilitator sees exactly
	// what the client signed.
	Payload json.RawMessage `json:"payload"`
}

// Body decodes the nested payload object. An absent payload decodes to an
// empty body.
func (p *PaymentPayload) Body() (*PayloadBody, error) {
	var body PayloadBody
	if len(p.Payload) == 0 || string(p.Payload) == "null" {
		return &body, nil
	}
	if err := json.Unmarshal(p.Payload, &body); err != nil {
		return nil, fmt.Errorf("payload.payload is not an object: %w", err)
	}
	return &body, nil
}

// VerifyRequest is the body sent to the facilitator's /verify and /settle endpoints.
type VerifyRequest struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	// Payment payload exactly as received from the client.
	PaymentPayload PaymentPayload `json:"paymentPayload"`

	// Payment requirements being verified against.
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse represents the facilitator's verification result.
type VerifyResponse struct {
	// Indicates whether the payment is valid.
	IsValid bool `json:"isValid"`

	// Provides a reason if the payment is invalid.
	InvalidReason string `json:"invalidReason,omitempty"`

	Payer string `json:"payer,omitempty"`
}

// SettleResponse represents the facilitator's settlement result.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`

	// ProofOfPayment is set when the requirements asked for the
	// ReputationExtension.
	ProofOfPayment *ProofOfPayment `json:"proofOfPayment,omitempty"`
}

// Validate checks that the VerifyRequest contains all required fields.
func (v *VerifyRequest) Validate() error {
	if v.X402Version <= 0 {
		return fmt.Errorf("x402Version must be greater than 0")
	}

	if len(v.PaymentPayload.Payload) == 0 {
		return fmt.Errorf("paymentPayload.payload is required")
	}

	return v.PaymentRequirements.Validate()
}

func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}

	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}

	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}

	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}

	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}

	if pr.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("paymentRequirements.maxTimeoutSeconds must be greater than 0")
	}

	return nil
}
