// Package x402 verifies and settles x402 payments across EVM, Solana,
// NEAR, Stellar and Algorand networks through a remote facilitator.
package x402

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ultravioletadao/x402-go/facilitator"
	"github.com/ultravioletadao/x402-go/logger"
	"github.com/ultravioletadao/x402-go/metrics"
	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/requirements"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/verification"
)

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)

const defaultTimeout = 30 * time.Second

// X402 resolves the token a payload was signed for, builds matching
// requirements and hands both to the facilitator. It keeps no per-call state
// and is safe for concurrent use.
type X402 struct {
	registry    *networks.Registry
	builder     *requirements.Builder
	facilitator facilitator.Interface
	verifier    *verification.Verifier

	logger  logger.Logger
	metrics metrics.Recorder
	timeout time.Duration

	price       decimal.NullDecimal
	payTo       map[types.ChainFamily]string
	resource    string
	description string
	mimeType    string
	maxTimeout  int

	verifyOnly      bool
	precheck        bool
	reputationProof bool
}

// New creates an X402 over registry and facilitator.
func New(registry *networks.Registry, f facilitator.Interface, opts ...Option) (*X402, error) {
	if registry == nil {
		return nil, types.NewError(types.ErrCodeConfigError, types.ErrNotConfigured, "registry is required")
	}
	if f == nil {
		return nil, types.NewError(types.ErrCodeConfigError, types.ErrNotConfigured, "facilitator is required")
	}

	x := &X402{
		registry:    registry,
		builder:     requirements.NewBuilder(registry),
		facilitator: f,
		verifier:    verification.NewVerifier(registry),
		logger:      logger.NoopLogger{},
		metrics:     metrics.NoopRecorder{},
		timeout:     defaultTimeout,
		payTo:       make(map[types.ChainFamily]string),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Registry returns the network registry.
func (x *X402) Registry() *networks.Registry {
	return x.registry
}

// ProcessPayment verifies and settles payload at the configured price.
//
// Structural problems (malformed payload, unknown network, unresolvable
// token) return a nil result and an error. A facilitator rejection returns a
// REJECTED result and a nil error. A facilitator that could not be reached
// returns a FACILITATOR_ERROR result together with the error.
//
// Token selection is driven by the payload only; there is no way to ask for
// a specific token here.
func (x *X402) ProcessPayment(ctx context.Context, payload *types.PaymentPayload) (*types.SettlementResult, error) {
	return x.process(ctx, payload, x.price)
}

// ProcessPaymentWithPrice is ProcessPayment with a per-call price in whole
// token units.
func (x *X402) ProcessPaymentWithPrice(ctx context.Context, payload *types.PaymentPayload, price decimal.Decimal) (*types.SettlementResult, error) {
	return x.process(ctx, payload, decimal.NewNullDecimal(price))
}

// Requirements builds the requirements for payload without contacting the
// facilitator.
func (x *X402) Requirements(payload *types.PaymentPayload) (*types.PaymentRequirements, error) {
	network, tok, err := requirements.Resolve(payload)
	if err != nil {
		return nil, err
	}
	target, err := x.builder.ResolveTarget(network, tok)
	if err != nil {
		return nil, err
	}
	return x.buildFor(target, x.price)
}

func (x *X402) process(ctx context.Context, payload *types.PaymentPayload, price decimal.NullDecimal) (*types.SettlementResult, error) {
	fields := map[string]any{"payment_id": uuid.NewString()}
	if payload != nil {
		fields["network"] = string(payload.Network)
	}
	x.logger.Debug("payment received", logger.Merge(fields, map[string]any{"stage": string(types.StageReceived)}))
	x.metrics.IncCounter(metrics.EventPaymentReceived, metricLabels(fields))

	network, tok, err := requirements.Resolve(payload)
	if err != nil {
		return nil, x.structuralFailure(fields, types.StageReceived, err)
	}
	fields["source"] = tok.Source.String()

	target, err := x.builder.ResolveTarget(network, tok)
	if err != nil {
		return nil, x.structuralFailure(fields, types.StageReceived, err)
	}
	fields["symbol"] = target.Symbol
	x.logger.Info("token resolved", logger.Merge(fields, map[string]any{
		"stage":   string(types.StageTokenResolved),
		"asset":   target.Address,
		"eip712":  target.Domain.Name,
		"version": target.Domain.Version,
	}))
	x.warnOnAddressMismatch(fields, target, tok)

	req, err := x.buildFor(target, price)
	if err != nil {
		return nil, x.structuralFailure(fields, types.StageTokenResolved, err)
	}
	x.logger.Debug("requirements built", logger.Merge(fields, map[string]any{
		"stage":  string(types.StageRequirements),
		"amount": req.MaxAmountRequired,
	}))

	result := &types.SettlementResult{
		PaymentID:    fields["payment_id"].(string),
		Stage:        types.StageRequirements,
		Network:      req.Network,
		Symbol:       target.Symbol,
		Requirements: req,
	}

	if x.precheck && target.Network.Family.UsesEIP712() {
		check, err := x.verifier.Verify(payload, req)
		if err != nil {
			return nil, x.structuralFailure(fields, types.StageRequirements, err)
		}
		if !check.Valid {
			return x.reject(fields, result, check.InvalidReason), nil
		}
	}

	return x.dispatch(ctx, fields, payload, result)
}

func (x *X402) dispatch(ctx context.Context, fields map[string]any, payload *types.PaymentPayload, result *types.SettlementResult) (*types.SettlementResult, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	result.Stage = types.StageDispatched
	x.logger.Debug("dispatching to facilitator", logger.Merge(fields, map[string]any{"stage": string(types.StageDispatched)}))

	start := time.Now()
	verified, err := x.facilitator.Verify(ctx, *payload, *result.Requirements)
	x.metrics.ObserveLatency(metrics.OpVerify, time.Since(start), metricLabels(fields))
	if err != nil {
		return x.facilitatorFailure(fields, result, metrics.OpVerify, err)
	}
	result.Payer = verified.Payer
	if !verified.IsValid {
		return x.reject(fields, result, verified.InvalidReason), nil
	}

	if x.verifyOnly {
		result.VerifiedOnly = true
		return x.settled(fields, result), nil
	}

	start = time.Now()
	settled, err := x.facilitator.Settle(ctx, *payload, *result.Requirements)
	x.metrics.ObserveLatency(metrics.OpSettle, time.Since(start), metricLabels(fields))
	if err != nil {
		return x.facilitatorFailure(fields, result, metrics.OpSettle, err)
	}
	if settled.Payer != "" {
		result.Payer = settled.Payer
	}
	if !settled.Success {
		return x.reject(fields, result, settled.ErrorReason), nil
	}

	result.Transaction = settled.Transaction
	result.ProofOfPayment = settled.ProofOfPayment
	return x.settled(fields, result), nil
}

func (x *X402) buildFor(target requirements.Target, price decimal.NullDecimal) (*types.PaymentRequirements, error) {
	payTo, ok := x.payTo[target.Network.Family]
	if !ok {
		return nil, types.NewError(types.ErrCodeConfigError, types.ErrNotConfigured,
			"no payTo address configured for %s networks", target.Network.Family)
	}
	opts := requirements.Options{
		Price:             price,
		PayTo:             payTo,
		Resource:          x.resource,
		Description:       x.description,
		MimeType:          x.mimeType,
		MaxTimeoutSeconds: x.maxTimeout,
	}
	if x.reputationProof {
		return requirements.BuildWithReputation(target, opts)
	}
	return requirements.BuildFor(target, opts)
}

// When the payload's domain override points at a different contract than the
// registry has for that symbol, the payload wins; record it.
func (x *X402) warnOnAddressMismatch(fields map[string]any, target requirements.Target, tok requirements.ResolvedToken) {
	if tok.Source != requirements.SourceOverride || target.Symbol == "" {
		return
	}
	registered, ok := target.Network.Token(target.Symbol)
	if !ok || registered.Address == target.Address {
		return
	}
	x.logger.Warn("payload token address differs from registry", logger.Merge(fields, map[string]any{
		"payload_address":  target.Address,
		"registry_address": registered.Address,
	}))
}

func (x *X402) structuralFailure(fields map[string]any, stage types.PaymentStage, err error) error {
	x.logger.Warn("payment not processable", logger.Merge(fields, map[string]any{
		"stage": string(stage),
		"code":  types.ErrorCode(err),
		"error": err,
	}))
	x.metrics.IncCounter(metrics.EventResolutionError, metricLabels(fields))
	return err
}

func (x *X402) reject(fields map[string]any, result *types.SettlementResult, reason string) *types.SettlementResult {
	result.Status = types.StatusRejected
	result.Reason = reason
	x.logger.Info("payment rejected", logger.Merge(fields, map[string]any{
		"stage":  string(result.Stage),
		"status": string(result.Status),
		"reason": reason,
	}))
	x.metrics.IncCounter(metrics.EventPaymentRejected, metricLabels(fields))
	return result
}

func (x *X402) settled(fields map[string]any, result *types.SettlementResult) *types.SettlementResult {
	result.Status = types.StatusSettled
	x.logger.Info("payment settled", logger.Merge(fields, map[string]any{
		"status":        string(result.Status),
		"payer":         result.Payer,
		"transaction":   result.Transaction,
		"verified_only": result.VerifiedOnly,
	}))
	x.metrics.IncCounter(metrics.EventPaymentSettled, metricLabels(fields))
	return result
}

func (x *X402) facilitatorFailure(fields map[string]any, result *types.SettlementResult, op string, err error) (*types.SettlementResult, error) {
	result.Status = types.StatusFacilitatorError
	result.Reason = err.Error()
	x.logger.Error("facilitator error", logger.Merge(fields, map[string]any{
		"stage":     string(result.Stage),
		"operation": op,
		"error":     err,
	}))
	x.metrics.IncCounter(metrics.EventFacilitatorErr, metricLabels(fields))

	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, facilitator.ErrUnavailable) {
		err = fmt.Errorf("%w: %v", facilitator.ErrUnavailable, err)
	}
	return result, &types.X402Error{
		Code:    types.ErrCodeFacilitator,
		Message: fmt.Sprintf("facilitator %s failed: %v", op, err),
		Err:     err,
	}
}

// PaymentRequired builds a 402 challenge listing every enabled network that
// has a payTo address configured. With no symbols, each network offers its
// default token; otherwise each listed symbol the network carries. A token
// whose decimals cannot represent the price is left out of the challenge.
func (x *X402) PaymentRequired(resource string, symbols ...string) (*types.X402Response, error) {
	resp := &types.X402Response{X402Version: ProtocolVersion, Accepts: []types.PaymentRequirements{}}
	offered := make(map[string]bool)
	var skipped error

	for _, cfg := range x.registry.Enabled() {
		if _, ok := x.payTo[cfg.Family]; !ok {
			continue
		}

		tokens := []networks.TokenConfig{cfg.DefaultToken()}
		if len(symbols) > 0 {
			tokens = tokens[:0]
			for _, s := range symbols {
				if t, ok := cfg.Token(s); ok {
					tokens = append(tokens, t)
				}
			}
		}

		for _, t := range tokens {
			req, err := x.buildFor(requirements.Target{
				Network:  cfg,
				Symbol:   t.Symbol,
				Address:  t.Address,
				Domain:   t.Domain(),
				Decimals: t.Decimals,
			}, x.price)
			if errors.Is(err, types.ErrInvalidAmount) {
				x.logger.Warn("token left out of payment challenge", map[string]any{
					"network":  cfg.ID.String(),
					"symbol":   t.Symbol,
					"decimals": t.Decimals,
					"error":    err,
				})
				skipped = err
				continue
			}
			if err != nil {
				return nil, err
			}
			if resource != "" {
				req.Resource = resource
			}
			resp.Accepts = append(resp.Accepts, *req)
			offered[t.Symbol] = true
		}
	}

	if len(resp.Accepts) == 0 && skipped != nil {
		return nil, skipped
	}
	resp.Error = challengeMessage(x.price, offered)
	return resp, nil
}

func challengeMessage(price decimal.NullDecimal, offered map[string]bool) string {
	symbols := make([]string, 0, len(offered))
	for s := range offered {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	label := strings.Join(symbols, " or ")
	if label == "" {
		return "X-PAYMENT header is required"
	}
	if !price.Valid {
		return fmt.Sprintf("Payment in %s required", label)
	}
	return fmt.Sprintf("Payment of %s %s required", price.Decimal.String(), label)
}

// Supported lists the (scheme, network) kinds the local registry can build
// requirements for.
func (x *X402) Supported() *types.SupportedResponse {
	enabled := x.registry.Enabled()
	kinds := make([]types.SupportedItem, 0, len(enabled))
	for _, cfg := range enabled {
		kinds = append(kinds, types.SupportedItem{
			X402Version: ProtocolVersion,
			Scheme:      string(types.SchemeExact),
			Network:     cfg.ID.String(),
		})
	}
	return &types.SupportedResponse{Kinds: kinds}
}

// GetVersion returns version information
func (x *X402) GetVersion() map[string]interface{} {
	return map[string]interface{}{
		"library_version":    Version,
		"protocol_version":   ProtocolVersion,
		"supported_networks": x.registry.Networks(),
		"supported_schemes":  []string{string(types.SchemeExact)},
	}
}

func metricLabels(fields map[string]any) map[string]string {
	labels := make(map[string]string, 2)
	for _, k := range []string{"network", "symbol"} {
		if v, ok := fields[k].(string); ok {
			labels[k] = v
		}
	}
	return labels
}
