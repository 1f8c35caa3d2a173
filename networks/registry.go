package networks

import (
	"sort"
	"strings"

	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

// Registry is the read-only catalog of supported networks and their tokens.
// It holds no locks; nothing mutates it after NewRegistry returns.
type Registry struct {
	networks map[types.Network]NetworkConfig
	ids      []types.Network
}

// NewRegistry builds a registry from already-validated network configs.
func NewRegistry(configs ...NetworkConfig) (*Registry, error) {
	if len(configs) == 0 {
		return nil, catalogError("registry has no networks")
	}

	r := &Registry{networks: make(map[types.Network]NetworkConfig, len(configs))}
	for _, cfg := range configs {
		if cfg.ID == "" || cfg.tokens == nil {
			return nil, catalogError("network config %q was not built with NewNetworkConfig", cfg.ID)
		}
		id := normalizeID(cfg.ID)
		if _, dup := r.networks[id]; dup {
			return nil, catalogError("duplicate network %s", id)
		}
		cfg.ID = id
		r.networks[id] = cfg
		r.ids = append(r.ids, id)
	}
	sort.Slice(r.ids, func(i, j int) bool { return r.ids[i] < r.ids[j] })

	return r, nil
}

// Lookup returns the config for a network slug.
func (r *Registry) Lookup(id types.Network) (NetworkConfig, error) {
	cfg, ok := r.networks[normalizeID(id)]
	if !ok {
		return NetworkConfig{}, types.NewError(types.ErrCodeUnknownNetwork, types.ErrUnknownNetwork, "%q", id)
	}
	return cfg, nil
}

// LookupToken returns the token registered under symbol on network id.
func (r *Registry) LookupToken(id types.Network, symbol string) (TokenConfig, error) {
	cfg, err := r.Lookup(id)
	if err != nil {
		return TokenConfig{}, err
	}

	token, ok := cfg.Token(symbol)
	if !ok {
		return TokenConfig{}, types.NewError(types.ErrCodeUnknownToken, types.ErrUnknownToken,
			"%s is not registered on %s (have %s)", NormalizeSymbol(symbol), cfg.ID, strings.Join(cfg.Symbols(), ", "))
	}
	return token, nil
}

// LookupTokenByAddress finds a token by contract address (EVM addresses
// compare case-insensitively).
func (r *Registry) LookupTokenByAddress(id types.Network, address string) (TokenConfig, error) {
	cfg, err := r.Lookup(id)
	if err != nil {
		return TokenConfig{}, err
	}

	symbol, ok := cfg.byAddress[utils.NormalizeAddress(cfg.Family, address)]
	if !ok {
		return TokenConfig{}, types.NewError(types.ErrCodeUnknownToken, types.ErrUnknownToken,
			"no token at %s on %s", address, cfg.ID)
	}
	return cfg.tokens[symbol], nil
}

// DefaultToken returns the network's default token.
func (r *Registry) DefaultToken(id types.Network) (TokenConfig, error) {
	cfg, err := r.Lookup(id)
	if err != nil {
		return TokenConfig{}, err
	}
	return cfg.DefaultToken(), nil
}

// Networks returns every registered network id in sorted order.
func (r *Registry) Networks() []types.Network {
	out := make([]types.Network, len(r.ids))
	copy(out, r.ids)
	return out
}

// Enabled returns the enabled network configs in id order.
func (r *Registry) Enabled() []NetworkConfig {
	out := make([]NetworkConfig, 0, len(r.ids))
	for _, id := range r.ids {
		if cfg := r.networks[id]; cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}

func normalizeID(id types.Network) types.Network {
	return types.Network(strings.ToLower(strings.TrimSpace(string(id))))
}
