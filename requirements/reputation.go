package requirements

import "github.com/ultravioletadao/x402-go/types"

// BuildWithReputation is BuildFor plus the ERC-8004 reputation extension in
// extra, which asks the facilitator to return a proof of payment. The
// extension is added on non-EVM networks too; there extra carries nothing
// else.
func BuildWithReputation(target Target, opts Options) (*types.PaymentRequirements, error) {
	req, err := BuildFor(target, opts)
	if err != nil {
		return nil, err
	}
	if req.Extra == nil {
		req.Extra = make(map[string]interface{}, 1)
	}
	req.Extra[types.ReputationExtension] = map[string]interface{}{"includeProof": true}
	return req, nil
}

// WantsReputationProof reports whether req carries the reputation extension
// with includeProof set.
func WantsReputationProof(req *types.PaymentRequirements) bool {
	if req == nil {
		return false
	}
	ext, ok := req.Extra[types.ReputationExtension].(map[string]interface{})
	if !ok {
		return false
	}
	include, _ := ext["includeProof"].(bool)
	return include
}
