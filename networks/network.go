package networks

import (
	"sort"

	"github.com/ultravioletadao/x402-go/types"
)

// DefaultTokenSymbol is used when a payload carries no token object.
const DefaultTokenSymbol = "USDC"

// NetworkConfig describes one chain and its token table. Values are built
// with NewNetworkConfig and never change afterwards.
type NetworkConfig struct {
	ID            types.Network
	DisplayName   string
	Family        types.ChainFamily
	ChainID       int64 // EVM only
	CAIP2         string
	Testnet       bool
	Enabled       bool
	DefaultSymbol string

	tokens    map[string]TokenConfig
	byAddress map[string]string
}

// NetworkSpec is the unvalidated input to NewNetworkConfig.
type NetworkSpec struct {
	ID            types.Network
	DisplayName   string
	Family        types.ChainFamily
	ChainID       int64
	CAIP2         string
	Testnet       bool
	Disabled      bool
	DefaultSymbol string
	Tokens        []TokenConfig
}

// NewNetworkConfig validates spec and freezes it into a NetworkConfig.
func NewNetworkConfig(spec NetworkSpec) (NetworkConfig, error) {
	if spec.ID == "" {
		return NetworkConfig{}, catalogError("network id is empty")
	}

	switch spec.Family {
	case types.ChainEVM:
		if spec.ChainID <= 0 {
			return NetworkConfig{}, catalogError("%s: EVM networks need a chain id", spec.ID)
		}
	case types.ChainSVM, types.ChainNEAR, types.ChainStellar, types.ChainAlgorand:
	default:
		return NetworkConfig{}, catalogError("%s: unknown chain family %q", spec.ID, spec.Family)
	}

	if len(spec.Tokens) == 0 {
		return NetworkConfig{}, catalogError("%s: token table is empty", spec.ID)
	}

	cfg := NetworkConfig{
		ID:            spec.ID,
		DisplayName:   spec.DisplayName,
		Family:        spec.Family,
		ChainID:       spec.ChainID,
		CAIP2:         spec.CAIP2,
		Testnet:       spec.Testnet,
		Enabled:       !spec.Disabled,
		DefaultSymbol: NormalizeSymbol(spec.DefaultSymbol),
		tokens:        make(map[string]TokenConfig, len(spec.Tokens)),
		byAddress:     make(map[string]string, len(spec.Tokens)),
	}
	if cfg.DefaultSymbol == "" {
		cfg.DefaultSymbol = DefaultTokenSymbol
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = string(spec.ID)
	}

	for _, t := range spec.Tokens {
		token, err := newTokenConfig(spec.ID, spec.Family, t)
		if err != nil {
			return NetworkConfig{}, err
		}
		if _, dup := cfg.tokens[token.Symbol]; dup {
			return NetworkConfig{}, catalogError("%s: duplicate token symbol %s", spec.ID, token.Symbol)
		}
		if other, dup := cfg.byAddress[token.Address]; dup {
			return NetworkConfig{}, catalogError("%s: %s and %s share address %s", spec.ID, other, token.Symbol, token.Address)
		}
		cfg.tokens[token.Symbol] = token
		cfg.byAddress[token.Address] = token.Symbol
	}

	if _, ok := cfg.tokens[cfg.DefaultSymbol]; !ok {
		return NetworkConfig{}, catalogError("%s: default token %s is not in the token table", spec.ID, cfg.DefaultSymbol)
	}

	return cfg, nil
}

// Token returns the token registered under symbol (case-insensitive).
func (n NetworkConfig) Token(symbol string) (TokenConfig, bool) {
	t, ok := n.tokens[NormalizeSymbol(symbol)]
	return t, ok
}

// DefaultToken returns the token used when a payload names none.
func (n NetworkConfig) DefaultToken() TokenConfig {
	return n.tokens[n.DefaultSymbol]
}

// Tokens returns a copy of the token table sorted by symbol.
func (n NetworkConfig) Tokens() []TokenConfig {
	out := make([]TokenConfig, 0, len(n.tokens))
	for _, t := range n.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns the registered symbols in sorted order.
func (n NetworkConfig) Symbols() []string {
	tokens := n.Tokens()
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Symbol
	}
	return out
}
