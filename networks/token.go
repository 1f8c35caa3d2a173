package networks

import (
	"strings"

	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

// TokenConfig describes one token on one network. The EIP-712 name is the
// exact string the contract was deployed with; the same symbol can carry a
// different name on another chain.
type TokenConfig struct {
	Symbol        string
	Address       string
	Decimals      int
	EIP712Name    string
	EIP712Version string
}

// Domain returns the token's EIP-712 {name, version} pair.
func (t TokenConfig) Domain() types.EIP712Domain {
	return types.EIP712Domain{Name: t.EIP712Name, Version: t.EIP712Version}
}

// NormalizeSymbol is the single case used for symbol keys.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func newTokenConfig(network types.Network, family types.ChainFamily, t TokenConfig) (TokenConfig, error) {
	t.Symbol = NormalizeSymbol(t.Symbol)
	if t.Symbol == "" {
		return TokenConfig{}, catalogError("%s: token symbol is empty", network)
	}

	if err := utils.ValidateAssetAddress(family, strings.TrimSpace(t.Address)); err != nil {
		return TokenConfig{}, catalogError("%s/%s: %v", network, t.Symbol, err)
	}
	t.Address = utils.NormalizeAddress(family, t.Address)

	if t.Decimals <= 0 {
		return TokenConfig{}, catalogError("%s/%s: decimals must be positive", network, t.Symbol)
	}

	if family.UsesEIP712() {
		if t.EIP712Name == "" || t.EIP712Version == "" {
			return TokenConfig{}, catalogError("%s/%s: EVM tokens need an EIP-712 name and version", network, t.Symbol)
		}
	} else if t.EIP712Name != "" || t.EIP712Version != "" {
		return TokenConfig{}, catalogError("%s/%s: %s tokens carry no EIP-712 domain", network, t.Symbol, family)
	}

	return t, nil
}

func catalogError(format string, args ...interface{}) error {
	return types.NewError(types.ErrCodeInvalidCatalog, types.ErrInvalidCatalog, format, args...)
}
