package requirements

import (
	"github.com/shopspring/decimal"

	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

const (
	DefaultMaxTimeoutSeconds = 300
	DefaultMimeType          = "application/json"
)

// Options are the resource-side fields of a PaymentRequirements object.
type Options struct {
	Scheme            string
	Price             decimal.NullDecimal // whole token units; unset means "0"
	PayTo             string
	Resource          string
	Description       string
	MimeType          string
	MaxTimeoutSeconds int
	OutputSchema      map[string]interface{}
}

// Builder builds PaymentRequirements against a registry. It performs no I/O
// and the same inputs always produce the same output.
type Builder struct {
	registry *networks.Registry
}

// NewBuilder returns a Builder over registry.
func NewBuilder(registry *networks.Registry) *Builder {
	return &Builder{registry: registry}
}

// Registry returns the registry the builder resolves against.
func (b *Builder) Registry() *networks.Registry {
	return b.registry
}

// Target is the concrete token a set of requirements points at.
type Target struct {
	Network networks.NetworkConfig
	Symbol  string
	Address string
	Domain  types.EIP712Domain
	// Decimals is 0 when an override names a token the registry does not
	// know and the payload did not state decimals.
	Decimals int
}

// ResolveTarget applies the precedence rule: override, then registry symbol,
// then registry address, then the network default.
func (b *Builder) ResolveTarget(network types.Network, tok ResolvedToken) (Target, error) {
	cfg, err := b.registry.Lookup(network)
	if err != nil {
		return Target{}, err
	}
	if !cfg.Enabled {
		return Target{}, types.NewError(types.ErrCodeNetworkDisabled, types.ErrNetworkDisabled, "%s", cfg.ID)
	}

	var entry networks.TokenConfig
	switch tok.Source {
	case SourceOverride:
		if tok.Override == nil {
			return Target{}, types.Malformed("override source without an eip712 domain")
		}
		if !cfg.Family.UsesEIP712() {
			return Target{}, types.Malformed("eip712 domain given for %s network %s", cfg.Family, cfg.ID)
		}
		return b.overrideTarget(cfg, tok), nil
	case SourceSymbol:
		entry, err = b.registry.LookupToken(cfg.ID, tok.Symbol)
		if err != nil {
			return Target{}, unresolved(err, "%s is not registered on %s", networks.NormalizeSymbol(tok.Symbol), cfg.ID)
		}
	case SourceAddress:
		entry, err = b.registry.LookupTokenByAddress(cfg.ID, tok.Address)
		if err != nil {
			return Target{}, unresolved(err, "no token registered at %s on %s", tok.Address, cfg.ID)
		}
	case SourceNetworkDefault:
		entry = cfg.DefaultToken()
	default:
		return Target{}, types.Malformed("unknown token source %d", tok.Source)
	}

	return Target{
		Network:  cfg,
		Symbol:   entry.Symbol,
		Address:  entry.Address,
		Domain:   entry.Domain(),
		Decimals: entry.Decimals,
	}, nil
}

// The override's domain is used as given and its address is only
// lower-cased, like every EVM address in the registry. Decimals come from the
// registry when it knows the token, since a wrong decimals value breaks
// amount math.
func (b *Builder) overrideTarget(cfg networks.NetworkConfig, tok ResolvedToken) Target {
	t := Target{
		Network: cfg,
		Symbol:  networks.NormalizeSymbol(tok.Symbol),
		Address: utils.NormalizeAddress(cfg.Family, tok.Address),
		Domain:  *tok.Override,
	}

	known, err := b.registry.LookupTokenByAddress(cfg.ID, t.Address)
	registered := err == nil
	if !registered && t.Symbol != "" {
		known, registered = cfg.Token(t.Symbol)
	}
	switch {
	case registered:
		t.Decimals = known.Decimals
		if t.Symbol == "" {
			t.Symbol = known.Symbol
		}
	case tok.Decimals != nil:
		t.Decimals = *tok.Decimals
	}
	return t
}

// Build resolves the token and assembles the requirements.
func (b *Builder) Build(network types.Network, tok ResolvedToken, opts Options) (*types.PaymentRequirements, error) {
	target, err := b.ResolveTarget(network, tok)
	if err != nil {
		return nil, err
	}
	return BuildFor(target, opts)
}

// BuildFor assembles requirements for an already-resolved target.
func BuildFor(target Target, opts Options) (*types.PaymentRequirements, error) {
	amount := "0"
	if opts.Price.Valid {
		if target.Decimals <= 0 {
			return nil, types.NewError(types.ErrCodeUnresolvedToken, types.ErrUnresolvedToken,
				"decimals for %s on %s are unknown", target.Address, target.Network.ID)
		}
		atomic, err := utils.ToAtomicUnits(opts.Price.Decimal, target.Decimals)
		if err != nil {
			return nil, err
		}
		amount = atomic
	}

	req := &types.PaymentRequirements{
		Scheme:            opts.Scheme,
		Network:           target.Network.ID.String(),
		MaxAmountRequired: amount,
		Resource:          opts.Resource,
		Description:       opts.Description,
		MimeType:          opts.MimeType,
		OutputSchema:      opts.OutputSchema,
		PayTo:             opts.PayTo,
		MaxTimeoutSeconds: opts.MaxTimeoutSeconds,
		Asset:             target.Address,
	}
	if req.Scheme == "" {
		req.Scheme = string(types.SchemeExact)
	}
	if req.MimeType == "" {
		req.MimeType = DefaultMimeType
	}
	if req.MaxTimeoutSeconds <= 0 {
		req.MaxTimeoutSeconds = DefaultMaxTimeoutSeconds
	}
	if req.PayTo != "" {
		req.PayTo = utils.NormalizeAddress(target.Network.Family, req.PayTo)
	}

	if target.Network.Family.UsesEIP712() {
		req.Extra = map[string]interface{}{
			"name":    target.Domain.Name,
			"version": target.Domain.Version,
		}
	}

	return req, nil
}

func unresolved(cause error, format string, args ...interface{}) error {
	e := types.NewError(types.ErrCodeUnresolvedToken, types.ErrUnresolvedToken, format, args...)
	e.Data = map[string]string{"cause": cause.Error()}
	return e
}
