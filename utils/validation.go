package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ultravioletadao/x402-go/types"
)

var (
	base58Pattern      = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)
	base32Pattern      = regexp.MustCompile(`^[A-Z2-7]+$`)
	nearImplicitRegex  = regexp.MustCompile(`^[0-9a-f]{64}$`)
	nearNamedRegex     = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)
	nonceBytes32Regexp = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// NormalizeAddress returns the canonical form of a token address for the
// family. EVM hex addresses are lower-cased; every other family uses
// case-sensitive encodings and is only trimmed.
func NormalizeAddress(family types.ChainFamily, address string) string {
	address = strings.TrimSpace(address)
	if family == types.ChainEVM && common.IsHexAddress(address) {
		return strings.ToLower(common.HexToAddress(address).Hex())
	}
	return address
}

// SameAddress compares two token addresses under the family's normalization.
func SameAddress(family types.ChainFamily, a, b string) bool {
	return NormalizeAddress(family, a) == NormalizeAddress(family, b)
}

// ValidateAssetAddress validates a token contract / mint / asset identifier.
func ValidateAssetAddress(family types.ChainFamily, address string) error {
	if address == "" {
		return fmt.Errorf("asset address cannot be empty")
	}

	switch family {
	case types.ChainStellar:
		// Stellar assets are Soroban token contracts (C... strkeys).
		if !strings.HasPrefix(address, "C") {
			return fmt.Errorf("Stellar asset must be a contract strkey starting with C")
		}
		return validateStrkey(address)
	case types.ChainAlgorand:
		id, err := strconv.ParseUint(address, 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("Algorand asset must be a positive ASA id")
		}
		return nil
	default:
		return ValidateAddressForFamily(family, address)
	}
}

// ValidateAddressForFamily validates an account or contract address.
func ValidateAddressForFamily(family types.ChainFamily, address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch family {
	case types.ChainEVM:
		if !common.IsHexAddress(address) || !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("EVM address must be 0x-prefixed 20-byte hex")
		}

	case types.ChainSVM:
		if len(address) < 32 || len(address) > 44 {
			return fmt.Errorf("Solana address has invalid length")
		}
		if !base58Pattern.MatchString(address) {
			return fmt.Errorf("Solana address must be valid base58")
		}

	case types.ChainNEAR:
		if nearImplicitRegex.MatchString(address) {
			return nil
		}
		if len(address) < 2 || len(address) > 64 || !nearNamedRegex.MatchString(address) {
			return fmt.Errorf("NEAR account id is invalid")
		}

	case types.ChainStellar:
		return validateStrkey(address)

	case types.ChainAlgorand:
		if len(address) != 58 || !base32Pattern.MatchString(address) {
			return fmt.Errorf("Algorand address must be 58 base32 characters")
		}

	default:
		return fmt.Errorf("unsupported chain family for address validation: %s", family)
	}

	return nil
}

// ValidateNonce checks that an EIP-3009 nonce is a 0x-prefixed bytes32.
func ValidateNonce(nonce string) error {
	if !nonceBytes32Regexp.MatchString(nonce) {
		return fmt.Errorf("nonce must be 0x-prefixed 32-byte hex")
	}
	return nil
}

func validateStrkey(address string) error {
	if len(address) != 56 || !base32Pattern.MatchString(address) {
		return fmt.Errorf("Stellar strkey must be 56 base32 characters")
	}
	return nil
}
