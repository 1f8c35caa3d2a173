package networks

// Catalog returns the specs of every network the SDK ships with. Each call
// returns fresh slices.
func Catalog() []NetworkSpec {
	specs := evmCatalog()
	return append(specs, nonEVMCatalog()...)
}

// NewDefaultRegistry builds a registry from the shipped catalog.
func NewDefaultRegistry() (*Registry, error) {
	return BuildRegistry(Catalog())
}

// BuildRegistry validates specs and assembles them into a registry.
func BuildRegistry(specs []NetworkSpec) (*Registry, error) {
	configs := make([]NetworkConfig, 0, len(specs))
	for _, spec := range specs {
		cfg, err := NewNetworkConfig(spec)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return NewRegistry(configs...)
}
