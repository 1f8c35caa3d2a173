package networks

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultravioletadao/x402-go/types"
)

const fixtureCatalog = `
networks:
  - id: local-anvil
    displayName: Anvil
    family: evm
    chainId: 31337
    testnet: true
    tokens:
      - symbol: usdc
        address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
        decimals: 6
        eip712:
          name: USD Coin
          version: "2"
      - symbol: EURC
        address: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
        decimals: 6
        eip712:
          name: EURC
          version: "2"
  - id: solana-localnet
    family: svm
    tokens:
      - symbol: USDC
        address: EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v
        decimals: 6
`

func TestLoadRegistryYAML(t *testing.T) {
	reg, err := LoadRegistryYAML(strings.NewReader(fixtureCatalog))
	require.NoError(t, err)

	assert.Equal(t, []types.Network{"local-anvil", "solana-localnet"}, reg.Networks())

	tok, err := reg.LookupToken("local-anvil", "USDC")
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)
	assert.Equal(t, "USD Coin", tok.EIP712Name)
	assert.Equal(t, "0x5fbdb2315678afecb367f032d93f642f64180aa3", tok.Address)

	anvil, err := reg.Lookup("local-anvil")
	require.NoError(t, err)
	assert.True(t, anvil.Testnet)
	assert.True(t, anvil.Enabled)
	assert.Equal(t, int64(31337), anvil.ChainID)

	sol, err := reg.DefaultToken("solana-localnet")
	require.NoError(t, err)
	assert.Empty(t, sol.EIP712Name)
}

func TestLoadRegistryYAML_Invalid(t *testing.T) {
	cases := map[string]string{
		"not yaml":        "networks: [",
		"no networks":     "networks: []",
		"unknown field":   "networks:\n  - id: x\n    family: svm\n    colour: red\n",
		"evm no chain id": "networks:\n  - id: x\n    family: evm\n    tokens:\n      - {symbol: USDC, address: \"0x5FbDB2315678afecb367f032d93F642f64180aa3\", decimals: 6, eip712: {name: USDC, version: \"2\"}}\n",
		"bad family":      "networks:\n  - id: x\n    family: cosmos\n    tokens:\n      - {symbol: ATOM, address: uatom, decimals: 6}\n",
		"missing domain":  "networks:\n  - id: x\n    family: evm\n    chainId: 1\n    tokens:\n      - {symbol: USDC, address: \"0x5FbDB2315678afecb367f032d93F642f64180aa3\", decimals: 6}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadRegistryYAML(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrInvalidCatalog))
		})
	}
}
