// Package metrics records payment outcomes and facilitator latency.
package metrics

import "time"

// Counter and latency names emitted by the client.
const (
	EventPaymentReceived = "payment_received"
	EventPaymentSettled  = "payment_settled"
	EventPaymentRejected = "payment_rejected"
	EventFacilitatorErr  = "facilitator_error"
	EventResolutionError = "resolution_error"

	OpVerify = "verify"
	OpSettle = "settle"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
