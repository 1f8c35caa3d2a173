package networks

import "github.com/ultravioletadao/x402-go/types"

// Non-EVM payments are not EIP-712 signed, so these tokens carry no domain.
func nativeUSDC(address string, decimals int) []TokenConfig {
	return []TokenConfig{{Symbol: "USDC", Address: address, Decimals: decimals}}
}

func nonEVMCatalog() []NetworkSpec {
	return []NetworkSpec{
		{
			ID: "solana", DisplayName: "Solana", Family: types.ChainSVM,
			CAIP2:  "solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp",
			Tokens: nativeUSDC("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", 6),
		},
		{
			ID: "solana-devnet", DisplayName: "Solana Devnet", Family: types.ChainSVM, Testnet: true,
			CAIP2:  "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1",
			Tokens: nativeUSDC("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", 6),
		},
		{
			ID: "fogo", DisplayName: "Fogo", Family: types.ChainSVM,
			Tokens: nativeUSDC("uSd2czE61Evaiu3ZKaKu4XCWTZuxoPxf6F9z9MmLZjS", 6),
		},
		{
			ID: "near", DisplayName: "NEAR", Family: types.ChainNEAR, CAIP2: "near:mainnet",
			Tokens: nativeUSDC("17208628f84f5d6ad33f0da3bbbeb27ffcb398eac501a31bd6ad2011e36133a1", 6),
		},
		{
			ID: "stellar", DisplayName: "Stellar", Family: types.ChainStellar, CAIP2: "stellar:pubnet",
			Tokens: nativeUSDC("CCW67TSZV3SSS2HXMBQ5JFGCKJNXKZM7UQUWUZPUTHXSTZLEO7SJMI75", 7),
		},
		{
			ID: "algorand", DisplayName: "Algorand", Family: types.ChainAlgorand, CAIP2: "algorand:mainnet",
			Tokens: nativeUSDC("31566704", 6),
		},
		{
			ID: "algorand-testnet", DisplayName: "Algorand Testnet", Family: types.ChainAlgorand, Testnet: true,
			CAIP2:  "algorand:testnet",
			Tokens: nativeUSDC("10458941", 6),
		},
	}
}
