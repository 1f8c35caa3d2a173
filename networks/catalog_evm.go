package networks

import "github.com/ultravioletadao/x402-go/types"

// Most chains deploy native USDC as "USD Coin"; newer deployments and the
// Circle testnet contracts use "USDC". Signatures only verify against the
// exact deployed name.
const (
	nameUSDCoin = "USD Coin"
	nameUSDC    = "USDC"
)

func usdc(address, name string) TokenConfig {
	return TokenConfig{Symbol: "USDC", Address: address, Decimals: 6, EIP712Name: name, EIP712Version: "2"}
}

func eurc(address, name string) TokenConfig {
	return TokenConfig{Symbol: "EURC", Address: address, Decimals: 6, EIP712Name: name, EIP712Version: "2"}
}

func ausd(address string) TokenConfig {
	return TokenConfig{Symbol: "AUSD", Address: address, Decimals: 6, EIP712Name: "AUSD", EIP712Version: "1"}
}

func usdt0(address string) TokenConfig {
	return TokenConfig{Symbol: "USDT0", Address: address, Decimals: 6, EIP712Name: "USD₮0", EIP712Version: "1"}
}

func gho(address string) TokenConfig {
	return TokenConfig{Symbol: "GHO", Address: address, Decimals: 18, EIP712Name: "Gho Token", EIP712Version: "1"}
}

const ausdAddress = "0x00000000eFE302BEAA2b3e6e1b18d08D69a9012a"

func evmCatalog() []NetworkSpec {
	return []NetworkSpec{
		{
			ID: "base", DisplayName: "Base", Family: types.ChainEVM, ChainID: 8453, CAIP2: "eip155:8453",
			Tokens: []TokenConfig{
				usdc("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", nameUSDCoin),
				eurc("0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42", "EURC"),
			},
		},
		{
			ID: "ethereum", DisplayName: "Ethereum", Family: types.ChainEVM, ChainID: 1, CAIP2: "eip155:1",
			Tokens: []TokenConfig{
				usdc("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", nameUSDCoin),
				eurc("0x1aBaEA1f7C830bD89Acc67eC4af516284b1bC33c", "Euro Coin"),
				{Symbol: "PYUSD", Address: "0x6c3ea9036406852006290770BEdFcAbA0e23A0e8", Decimals: 6, EIP712Name: "PayPal USD", EIP712Version: "1"},
				ausd(ausdAddress),
				gho("0x40D16FC0246aD3160Ccc09B8D0D3A2cD28aE6C2f"),
				{Symbol: "CRVUSD", Address: "0xf939E0A03FB07F59A73314E73794Be0E57ac1b4E", Decimals: 18, EIP712Name: "Curve.Fi USD Stablecoin", EIP712Version: "1"},
			},
		},
		{
			ID: "polygon", DisplayName: "Polygon PoS", Family: types.ChainEVM, ChainID: 137, CAIP2: "eip155:137",
			Tokens: []TokenConfig{
				usdc("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", nameUSDCoin),
				ausd(ausdAddress),
			},
		},
		{
			ID: "arbitrum", DisplayName: "Arbitrum One", Family: types.ChainEVM, ChainID: 42161, CAIP2: "eip155:42161",
			Tokens: []TokenConfig{
				usdc("0xaf88d065e77c8cC2239327C5EDb3A432268e5831", nameUSDCoin),
				usdt0("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
				gho("0x7dfF72693f6A4149b17e7C6314655f6A9F7c8B33"),
			},
		},
		{
			ID: "optimism", DisplayName: "Optimism", Family: types.ChainEVM, ChainID: 10, CAIP2: "eip155:10",
			Tokens: []TokenConfig{
				usdc("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", nameUSDCoin),
				usdt0("0x01bFF41798a0BcF287b996046Ca68b395DbC1071"),
			},
		},
		{
			ID: "avalanche", DisplayName: "Avalanche C-Chain", Family: types.ChainEVM, ChainID: 43114, CAIP2: "eip155:43114",
			Tokens: []TokenConfig{
				usdc("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E", nameUSDCoin),
				eurc("0xC891EB4cbdEFf6e073e859e987815Ed1505c2ACD", "Euro Coin"),
				ausd(ausdAddress),
			},
		},
		{
			ID: "celo", DisplayName: "Celo", Family: types.ChainEVM, ChainID: 42220, CAIP2: "eip155:42220",
			Tokens: []TokenConfig{usdc("0xcebA9300f2b948710d2653dD7B07f33A8B32118C", nameUSDC)},
		},
		{
			ID: "hyperevm", DisplayName: "HyperEVM", Family: types.ChainEVM, ChainID: 999, CAIP2: "eip155:999",
			Tokens: []TokenConfig{usdc("0xb88339CB7199b77E23DB6E890353E22632Ba630f", nameUSDC)},
		},
		{
			ID: "unichain", DisplayName: "Unichain", Family: types.ChainEVM, ChainID: 130, CAIP2: "eip155:130",
			Tokens: []TokenConfig{usdc("0x078d782b760474a361dda0af3839290b0ef57ad6", nameUSDC)},
		},
		{
			ID: "monad", DisplayName: "Monad", Family: types.ChainEVM, ChainID: 143, CAIP2: "eip155:143",
			Tokens: []TokenConfig{usdc("0x754704bc059f8c67012fed69bc8a327a5aafb603", nameUSDC)},
		},
		{
			// Binance-Peg USDC has 18 decimals and no ERC-3009 support.
			ID: "bsc", DisplayName: "BNB Smart Chain", Family: types.ChainEVM, ChainID: 56, CAIP2: "eip155:56",
			Disabled: true,
			Tokens: []TokenConfig{
				{Symbol: "USDC", Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18, EIP712Name: nameUSDCoin, EIP712Version: "2"},
			},
		},
		{
			ID: "base-sepolia", DisplayName: "Base Sepolia", Family: types.ChainEVM, ChainID: 84532, CAIP2: "eip155:84532",
			Testnet: true,
			Tokens:  []TokenConfig{usdc("0x036CbD53842c5426634e7929541eC2318f3dCF7e", nameUSDC)},
		},
		{
			ID: "avalanche-fuji", DisplayName: "Avalanche Fuji", Family: types.ChainEVM, ChainID: 43113, CAIP2: "eip155:43113",
			Testnet: true,
			Tokens:  []TokenConfig{usdc("0x5425890298aed601595a70AB815c96711a31Bc65", nameUSDCoin)},
		},
	}
}
