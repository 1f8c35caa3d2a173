package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ultravioletadao/x402-go/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the shared validator over v's struct tags.
func ValidateStruct(v interface{}) error {
	return validate.Struct(v)
}

// ParsePaymentPayload parses and validates a PaymentPayload from JSON.
func ParsePaymentPayload(data []byte) (*types.PaymentPayload, error) {
	var payload types.PaymentPayload

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&payload); err != nil {
		return nil, types.Malformed("failed to parse payment payload: %v", err)
	}

	if err := validate.Struct(&payload); err != nil {
		return nil, types.Malformed("validation failed: %v", err)
	}

	return &payload, nil
}

// DecodePaymentHeader decodes an X-PAYMENT header value (base64 JSON).
// Standard and URL-safe alphabets, padded or not, are accepted.
func DecodePaymentHeader(header string) (*types.PaymentPayload, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, types.Malformed("empty payment header")
	}

	var (
		raw []byte
		err error
	)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		if raw, err = enc.DecodeString(header); err == nil {
			break
		}
	}
	if err != nil {
		return nil, types.Malformed("payment header is not base64: %v", err)
	}

	return ParsePaymentPayload(raw)
}

// EncodeHeader marshals v to JSON and base64-encodes it for an x402 header.
func EncodeHeader(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// NormalizeJSON formats JSON with consistent indentation
func NormalizeJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}
