package networks

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

type yamlCatalog struct {
	Networks []yamlNetwork `yaml:"networks" validate:"required,min=1,dive"`
}

type yamlNetwork struct {
	ID            string      `yaml:"id" validate:"required"`
	DisplayName   string      `yaml:"displayName"`
	Family        string      `yaml:"family" validate:"required,oneof=evm svm near stellar algorand"`
	ChainID       int64       `yaml:"chainId" validate:"required_if=Family evm"`
	CAIP2         string      `yaml:"caip2"`
	Testnet       bool        `yaml:"testnet"`
	Disabled      bool        `yaml:"disabled"`
	DefaultSymbol string      `yaml:"defaultSymbol"`
	Tokens        []yamlToken `yaml:"tokens" validate:"required,min=1,dive"`
}

type yamlToken struct {
	Symbol   string              `yaml:"symbol" validate:"required"`
	Address  string              `yaml:"address" validate:"required"`
	Decimals int                 `yaml:"decimals" validate:"required,gt=0,lte=36"`
	EIP712   *types.EIP712Domain `yaml:"eip712"`
}

// LoadRegistryYAML builds a registry from a YAML catalog document.
func LoadRegistryYAML(r io.Reader) (*Registry, error) {
	var doc yamlCatalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, catalogError("decode yaml: %v", err)
	}
	if err := utils.ValidateStruct(&doc); err != nil {
		return nil, catalogError("%v", err)
	}

	specs := make([]NetworkSpec, 0, len(doc.Networks))
	for _, n := range doc.Networks {
		spec := NetworkSpec{
			ID:            types.Network(n.ID),
			DisplayName:   n.DisplayName,
			Family:        types.ChainFamily(n.Family),
			ChainID:       n.ChainID,
			CAIP2:         n.CAIP2,
			Testnet:       n.Testnet,
			Disabled:      n.Disabled,
			DefaultSymbol: n.DefaultSymbol,
		}
		for _, t := range n.Tokens {
			token := TokenConfig{Symbol: t.Symbol, Address: t.Address, Decimals: t.Decimals}
			if t.EIP712 != nil {
				token.EIP712Name = t.EIP712.Name
				token.EIP712Version = t.EIP712.Version
			}
			spec.Tokens = append(spec.Tokens, token)
		}
		specs = append(specs, spec)
	}

	return BuildRegistry(specs)
}

// LoadRegistryFile is LoadRegistryYAML over a file path.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	return LoadRegistryYAML(f)
}
