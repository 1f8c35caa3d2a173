package networks

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultravioletadao/x402-go/types"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestDefaultRegistry_USDCDomainNames(t *testing.T) {
	reg := defaultRegistry(t)

	cases := map[types.Network]string{
		"base":           "USD Coin",
		"ethereum":       "USD Coin",
		"polygon":        "USD Coin",
		"arbitrum":       "USD Coin",
		"optimism":       "USD Coin",
		"avalanche":      "USD Coin",
		"avalanche-fuji": "USD Coin",
		"celo":           "USDC",
		"hyperevm":       "USDC",
		"unichain":       "USDC",
		"monad":          "USDC",
		"base-sepolia":   "USDC",
	}

	for network, name := range cases {
		t.Run(string(network), func(t *testing.T) {
			token, err := reg.LookupToken(network, "USDC")
			require.NoError(t, err)
			assert.Equal(t, name, token.EIP712Name)
			assert.Equal(t, "2", token.EIP712Version)
			assert.Equal(t, 6, token.Decimals)
		})
	}
}

func TestDefaultRegistry_EURCNamesDifferPerChain(t *testing.T) {
	reg := defaultRegistry(t)

	eth, err := reg.LookupToken("ethereum", "EURC")
	require.NoError(t, err)
	assert.Equal(t, "Euro Coin", eth.EIP712Name)

	base, err := reg.LookupToken("base", "EURC")
	require.NoError(t, err)
	assert.Equal(t, "EURC", base.EIP712Name)
	assert.Equal(t, "0x60a3e35cc302bfa44cb288bc5a4f316fdb1adb42", base.Address)

	avax, err := reg.LookupToken("avalanche", "EURC")
	require.NoError(t, err)
	assert.Equal(t, "Euro Coin", avax.EIP712Name)
}

func TestDefaultRegistry_EighteenDecimalTokens(t *testing.T) {
	reg := defaultRegistry(t)

	for _, tc := range []struct {
		network types.Network
		symbol  string
	}{
		{"ethereum", "GHO"},
		{"ethereum", "CRVUSD"},
		{"arbitrum", "GHO"},
		{"bsc", "USDC"},
	} {
		token, err := reg.LookupToken(tc.network, tc.symbol)
		require.NoError(t, err, "%s/%s", tc.network, tc.symbol)
		assert.Equal(t, 18, token.Decimals)
	}
}

func TestDefaultRegistry_EveryNetworkHasDefault(t *testing.T) {
	reg := defaultRegistry(t)

	for _, id := range reg.Networks() {
		token, err := reg.DefaultToken(id)
		require.NoError(t, err)
		assert.Equal(t, "USDC", token.Symbol, id)
	}
}

func TestDefaultRegistry_NonEVMTokensCarryNoDomain(t *testing.T) {
	reg := defaultRegistry(t)

	for _, id := range reg.Networks() {
		cfg, err := reg.Lookup(id)
		require.NoError(t, err)
		if cfg.Family.UsesEIP712() {
			assert.Positive(t, cfg.ChainID, id)
			continue
		}
		assert.Equal(t, []string{"USDC"}, cfg.Symbols(), id)
		tok := cfg.DefaultToken()
		assert.Empty(t, tok.EIP712Name, id)
		assert.Empty(t, tok.EIP712Version, id)
	}
}

func TestRegistry_NonEVMAddressesKeepCase(t *testing.T) {
	reg := defaultRegistry(t)

	sol, err := reg.DefaultToken("solana")
	require.NoError(t, err)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", sol.Address)

	xlm, err := reg.DefaultToken("stellar")
	require.NoError(t, err)
	assert.Equal(t, 7, xlm.Decimals)
}

func TestRegistry_LookupErrors(t *testing.T) {
	reg := defaultRegistry(t)

	_, err := reg.Lookup("dogechain")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnknownNetwork))
	assert.Equal(t, types.ErrCodeUnknownNetwork, types.ErrorCode(err))

	_, err = reg.LookupToken("celo", "EURC")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnknownToken))

	_, err = reg.LookupToken("dogechain", "USDC")
	assert.True(t, errors.Is(err, types.ErrUnknownNetwork))
}

func TestRegistry_SymbolAndNetworkCaseInsensitive(t *testing.T) {
	reg := defaultRegistry(t)

	lower, err := reg.LookupToken("base", "eurc")
	require.NoError(t, err)
	upper, err := reg.LookupToken("BASE", "EURC")
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

func TestRegistry_LookupTokenByAddress(t *testing.T) {
	reg := defaultRegistry(t)

	token, err := reg.LookupTokenByAddress("ethereum", "0x"+strings.ToUpper("1abaea1f7c830bd89acc67ec4af516284b1bc33c"))
	require.NoError(t, err)
	assert.Equal(t, "EURC", token.Symbol)

	_, err = reg.LookupTokenByAddress("ethereum", "0x0000000000000000000000000000000000000001")
	assert.True(t, errors.Is(err, types.ErrUnknownToken))
}

func TestRegistry_EnabledSkipsBSC(t *testing.T) {
	reg := defaultRegistry(t)

	bsc, err := reg.Lookup("bsc")
	require.NoError(t, err)
	assert.False(t, bsc.Enabled)

	for _, cfg := range reg.Enabled() {
		assert.NotEqual(t, types.Network("bsc"), cfg.ID)
	}
	assert.Len(t, reg.Enabled(), len(reg.Networks())-1)
}

func TestRegistry_NetworksSortedCopy(t *testing.T) {
	reg := defaultRegistry(t)

	ids := reg.Networks()
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.True(t, ids[i-1] < ids[i], "%s before %s", ids[i-1], ids[i])
	}

	ids[0] = "mutated"
	assert.NotEqual(t, types.Network("mutated"), reg.Networks()[0])
}

func TestNewRegistry_RejectsInvalidConfigs(t *testing.T) {
	good := NetworkSpec{
		ID: "testchain", Family: types.ChainEVM, ChainID: 31337,
		Tokens: []TokenConfig{usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC")},
	}

	t.Run("duplicate network", func(t *testing.T) {
		_, err := BuildRegistry([]NetworkSpec{good, good})
		assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewRegistry()
		assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
	})

	t.Run("zero value config", func(t *testing.T) {
		_, err := NewRegistry(NetworkConfig{ID: "x"})
		assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
	})

	mutate := map[string]func(s *NetworkSpec){
		"missing chain id":   func(s *NetworkSpec) { s.ChainID = 0 },
		"unknown family":     func(s *NetworkSpec) { s.Family = "cosmos" },
		"no tokens":          func(s *NetworkSpec) { s.Tokens = nil },
		"default not listed": func(s *NetworkSpec) { s.DefaultSymbol = "EURC" },
		"bad address": func(s *NetworkSpec) {
			s.Tokens = []TokenConfig{usdc("0x1234", "USDC")}
		},
		"missing eip712 name": func(s *NetworkSpec) {
			s.Tokens = []TokenConfig{usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "")}
		},
		"zero decimals": func(s *NetworkSpec) {
			tok := usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC")
			tok.Decimals = 0
			s.Tokens = []TokenConfig{tok}
		},
		"duplicate symbol": func(s *NetworkSpec) {
			s.Tokens = []TokenConfig{
				usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC"),
				usdc("0x5425890298aed601595a70AB815c96711a31Bc65", "USDC"),
			}
		},
		"duplicate address": func(s *NetworkSpec) {
			s.Tokens = []TokenConfig{
				usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", "USDC"),
				eurc("0x036cbd53842c5426634e7929541ec2318f3dcf7e", "EURC"),
			}
		},
	}

	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			spec := good
			spec.Tokens = append([]TokenConfig(nil), good.Tokens...)
			fn(&spec)
			_, err := NewNetworkConfig(spec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
		})
	}
}

func TestNewNetworkConfig_NonEVMRejectsDomain(t *testing.T) {
	_, err := NewNetworkConfig(NetworkSpec{
		ID: "solana", Family: types.ChainSVM,
		Tokens: []TokenConfig{{Symbol: "USDC", Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6, EIP712Name: "USD Coin", EIP712Version: "2"}},
	})
	assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
}

func TestNetworkConfig_TokensSortedCopy(t *testing.T) {
	reg := defaultRegistry(t)

	eth, err := reg.Lookup("ethereum")
	require.NoError(t, err)
	assert.Equal(t, []string{"AUSD", "CRVUSD", "EURC", "GHO", "PYUSD", "USDC"}, eth.Symbols())

	tokens := eth.Tokens()
	tokens[0].EIP712Name = "tampered"
	again, _ := eth.Token("AUSD")
	assert.Equal(t, "AUSD", again.EIP712Name)
}
