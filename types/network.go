package types

// Network is the x402 network slug carried in payloads (e.g. "base", "solana").
type Network string

func (n Network) String() string {
	return string(n)
}

// ChainFamily classifies a network into a blockchain family.
type ChainFamily string

const (
	ChainEVM      ChainFamily = "evm"
	ChainSVM      ChainFamily = "svm"
	ChainNEAR     ChainFamily = "near"
	ChainStellar  ChainFamily = "stellar"
	ChainAlgorand ChainFamily = "algorand"
)

// UsesEIP712 reports whether payments on this family are EIP-712 signed
// authorizations whose domain must travel in the requirements' extra field.
func (f ChainFamily) UsesEIP712() bool {
	return f == ChainEVM
}

func (f ChainFamily) String() string {
	return string(f)
}
