// Package requirements turns an inbound payment payload into the
// PaymentRequirements object a facilitator verifies the signature against.
package requirements

import (
	"strings"

	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

// Source records which branch resolved the token. The builder switches on it.
type Source int

const (
	// SourceNetworkDefault: the payload named no token; use the network default.
	SourceNetworkDefault Source = iota
	// SourceSymbol: the payload named a symbol without a domain; registry decides.
	SourceSymbol
	// SourceAddress: the payload gave only an address; registry decides by address.
	SourceAddress
	// SourceOverride: the payload carried the EIP-712 domain it signed with.
	SourceOverride
)

func (s Source) String() string {
	switch s {
	case SourceNetworkDefault:
		return "network_default"
	case SourceSymbol:
		return "symbol"
	case SourceAddress:
		return "address"
	case SourceOverride:
		return "override"
	default:
		return "unknown"
	}
}

// ResolvedToken is what the payload says about the token, taken verbatim.
// Nothing here has been checked against the registry yet.
type ResolvedToken struct {
	Source   Source
	Symbol   string
	Address  string
	Decimals *int
	Override *types.EIP712Domain
}

// Resolve extracts the network and the token reference from a payload.
func Resolve(p *types.PaymentPayload) (types.Network, ResolvedToken, error) {
	if p == nil {
		return "", ResolvedToken{}, types.Malformed("payload is nil")
	}

	network := types.Network(strings.TrimSpace(string(p.Network)))
	if network == "" {
		return "", ResolvedToken{}, types.Malformed("network is required")
	}

	body, err := p.Body()
	if err != nil {
		return "", ResolvedToken{}, types.Malformed("%v", err)
	}

	if body.Authorization != nil {
		if err := utils.ValidateStruct(body.Authorization); err != nil {
			return "", ResolvedToken{}, types.Malformed("authorization: %v", err)
		}
	}

	tok, err := resolveToken(body.Token)
	if err != nil {
		return "", ResolvedToken{}, err
	}
	return network, tok, nil
}

func resolveToken(info *types.TokenInfo) (ResolvedToken, error) {
	if info.IsEmpty() {
		return ResolvedToken{Source: SourceNetworkDefault}, nil
	}

	if err := utils.ValidateStruct(info); err != nil {
		return ResolvedToken{}, types.Malformed("token: %v", err)
	}
	if info.Decimals != nil && *info.Decimals <= 0 {
		return ResolvedToken{}, types.Malformed("token.decimals must be positive")
	}

	tok := ResolvedToken{
		Symbol:   strings.TrimSpace(info.Symbol),
		Address:  strings.TrimSpace(info.Address),
		Decimals: info.Decimals,
	}

	switch {
	case info.EIP712 != nil:
		if info.EIP712.Name == "" || info.EIP712.Version == "" {
			return ResolvedToken{}, types.Malformed("token.eip712 needs both name and version")
		}
		if tok.Address == "" {
			return ResolvedToken{}, types.Malformed("token.eip712 given without token.address")
		}
		override := *info.EIP712
		tok.Override = &override
		tok.Source = SourceOverride
	case tok.Symbol != "":
		tok.Source = SourceSymbol
	default:
		tok.Source = SourceAddress
	}

	return tok, nil
}
