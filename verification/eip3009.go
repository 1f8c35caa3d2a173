package verification

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ultravioletadao/x402-go/types"
)

const transferWithAuthorization = "TransferWithAuthorization"

var eip3009Types = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	transferWithAuthorization: {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// Domain is a full EIP-712 domain for a token contract.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// DomainFor builds the signing domain implied by a set of requirements.
func DomainFor(req *types.PaymentRequirements, chainID int64) Domain {
	return Domain{
		Name:              req.EIP712Name(),
		Version:           req.EIP712Version(),
		ChainID:           chainID,
		VerifyingContract: req.Asset,
	}
}

// TypedData returns the EIP-3009 TransferWithAuthorization typed data.
func TypedData(domain Domain, auth *types.EVMAuthorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       eip3009Types,
		PrimaryType: transferWithAuthorization,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(big.NewInt(domain.ChainID)),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       auth.Value,
			"validAfter":  auth.ValidAfter,
			"validBefore": auth.ValidBefore,
			"nonce":       auth.Nonce,
		},
	}
}

// Digest returns the EIP-712 hash the authorization was signed over.
func Digest(domain Domain, auth *types.EVMAuthorization) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(TypedData(domain, auth))
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return hash, nil
}

// RecoverSigner recovers the address that produced signature over digest.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(digest []byte, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(ensure0x(signature))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignAuthorization signs auth under domain. The recovery id is shifted to
// 27/28 as wallets produce it.
func SignAuthorization(domain Domain, auth *types.EVMAuthorization, sign func(digest []byte) ([]byte, error)) (string, error) {
	digest, err := Digest(domain, auth)
	if err != nil {
		return "", err
	}
	sig, err := sign(digest)
	if err != nil {
		return "", fmt.Errorf("failed to sign hash: %w", err)
	}
	if len(sig) == crypto.SignatureLength && sig[crypto.RecoveryIDOffset] < 27 {
		sig[crypto.RecoveryIDOffset] += 27
	}
	return hexutil.Encode(sig), nil
}

func ensure0x(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}
