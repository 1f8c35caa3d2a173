package types

// EVMAuthorization holds the EIP-3009 transferWithAuthorization parameters.
type EVMAuthorization struct {
	From        string `json:"from" validate:"required"`
	To          string `json:"to" validate:"required"`
	Value       string `json:"value" validate:"required,numeric"`       // uint256
	ValidAfter  string `json:"validAfter" validate:"required,numeric"`  // unix seconds
	ValidBefore string `json:"validBefore" validate:"required,numeric"` // unix seconds
	Nonce       string `json:"nonce" validate:"required"`               // bytes32 hex
}

// EIP712Domain is the {name, version} half of an EIP-712 domain. Chain id and
// verifying contract come from the network and the asset address.
type EIP712Domain struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// TokenInfo is the optional token object a client places inside the payload.
type TokenInfo struct {
	Address  string        `json:"address,omitempty"`
	Symbol   string        `json:"symbol,omitempty"`
	Decimals *int          `json:"decimals,omitempty" validate:"omitempty,gt=0,lte=36"`
	EIP712   *EIP712Domain `json:"eip712,omitempty"`
}

// IsEmpty reports whether the token object carries no usable field.
func (t *TokenInfo) IsEmpty() bool {
	return t == nil || (t.Address == "" && t.Symbol == "" && t.EIP712 == nil)
}

// PayloadBody is the scheme-specific object nested under payload.payload.
// Only the fields the SDK reads are decoded; the raw bytes are forwarded.
type PayloadBody struct {
	Signature     string            `json:"signature,omitempty"`
	Authorization *EVMAuthorization `json:"authorization,omitempty"`
	Transaction   string            `json:"transaction,omitempty"`
	Token         *TokenInfo        `json:"token,omitempty"`
}
