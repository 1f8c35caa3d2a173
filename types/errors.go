package types

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every X402Error produced by the SDK wraps one of these, so
// callers can branch with errors.Is as well as on Code.
var (
	ErrMalformedPayload = errors.New("x402: malformed payment payload")
	ErrUnknownNetwork   = errors.New("x402: unknown network")
	ErrUnknownToken     = errors.New("x402: unknown token")
	ErrUnresolvedToken  = errors.New("x402: unresolved token")
	ErrNetworkDisabled  = errors.New("x402: network disabled")
	ErrInvalidAmount    = errors.New("x402: invalid amount")
	ErrInvalidCatalog   = errors.New("x402: invalid network catalog")
	ErrNotConfigured    = errors.New("x402: not configured")
)

// Common error codes
const (
	ErrCodeMalformedPayload = "MALFORMED_PAYLOAD"
	ErrCodeUnknownNetwork   = "UNKNOWN_NETWORK"
	ErrCodeUnknownToken     = "UNKNOWN_TOKEN"
	ErrCodeUnresolvedToken  = "UNRESOLVED_TOKEN"
	ErrCodeNetworkDisabled  = "NETWORK_DISABLED"
	ErrCodeInvalidAmount    = "INVALID_AMOUNT"
	ErrCodeInvalidCatalog   = "INVALID_CATALOG"
	ErrCodeFacilitator      = "FACILITATOR_ERROR"
	ErrCodeConfigError      = "CONFIG_ERROR"
)

// X402Error is the typed failure returned by the SDK.
type X402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}

func (e *X402Error) Error() string {
	return e.Message
}

func (e *X402Error) Unwrap() error {
	return e.Err
}

// NewError builds an X402Error around a sentinel.
func NewError(code string, sentinel error, format string, args ...interface{}) *X402Error {
	return &X402Error{
		Code:    code,
		Message: fmt.Sprintf("%s: %s", sentinel.Error(), fmt.Sprintf(format, args...)),
		Err:     sentinel,
	}
}

// Malformed is shorthand for a MALFORMED_PAYLOAD error.
func Malformed(format string, args ...interface{}) *X402Error {
	return NewError(ErrCodeMalformedPayload, ErrMalformedPayload, format, args...)
}

// ErrorCode extracts the X402Error code from err, or "" if err is not one.
func ErrorCode(err error) string {
	var xe *X402Error
	if errors.As(err, &xe) {
		return xe.Code
	}
	return ""
}
