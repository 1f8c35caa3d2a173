// Package config loads the x402 server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/types"
	"github.com/ultravioletadao/x402-go/utils"
)

// Config holds all configuration for the server.
type Config struct {
	Server      ServerConfig
	Facilitator FacilitatorConfig
	Payment     PaymentConfig
	Logging     LoggingConfig
	Metrics     MetricsConfig
	Catalog     CatalogConfig
	Escrow      EscrowConfig
}

type ServerConfig struct {
	Host        string `validate:"required"`
	Port        int    `validate:"min=1,max=65535"`
	ExemptPaths []string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type FacilitatorConfig struct {
	URL           string `validate:"required,url"`
	Authorization string
	Timeout       time.Duration `validate:"gt=0"`
}

type PaymentConfig struct {
	// Price in whole token units; empty means no price is attached.
	Price             string
	PayTo             PayToConfig
	Resource          string `validate:"omitempty,url"`
	Description       string
	MimeType          string
	MaxTimeoutSeconds int `validate:"gte=0"`
	Symbols           []string
	VerifyOnly        bool
	SignaturePrecheck bool
	// ReputationProof asks the facilitator for an ERC-8004 proof of payment.
	ReputationProof bool
}

// PayToConfig holds one recipient per chain family.
type PayToConfig struct {
	EVM      string
	SVM      string
	NEAR     string
	Stellar  string
	Algorand string
}

type LoggingConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool
	Path    string `validate:"startswith=/"`
}

type EscrowConfig struct {
	URL    string `validate:"omitempty,url"`
	APIKey string
}

type CatalogConfig struct {
	// Path to a YAML network catalog; empty uses the built-in catalog.
	Path string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("HOST", "0.0.0.0"),
			Port:        getEnvInt("PORT", 8080),
			ExemptPaths: getEnvStringSlice("X402_EXEMPT_PATHS", []string{"/health", "/metrics"}),
		},
		Facilitator: FacilitatorConfig{
			URL:           getEnv("X402_FACILITATOR_URL", "https://facilitator.ultravioletadao.xyz"),
			Authorization: getEnv("X402_FACILITATOR_AUTH", ""),
			Timeout:       time.Duration(getEnvInt("X402_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Payment: PaymentConfig{
			Price: getEnv("X402_PRICE", ""),
			PayTo: PayToConfig{
				EVM:      getEnv("X402_PAY_TO_EVM", ""),
				SVM:      getEnv("X402_PAY_TO_SOLANA", ""),
				NEAR:     getEnv("X402_PAY_TO_NEAR", ""),
				Stellar:  getEnv("X402_PAY_TO_STELLAR", ""),
				Algorand: getEnv("X402_PAY_TO_ALGORAND", ""),
			},
			Resource:          getEnv("X402_RESOURCE", ""),
			Description:       getEnv("X402_RESOURCE_DESCRIPTION", ""),
			MimeType:          getEnv("X402_MIME_TYPE", "application/json"),
			MaxTimeoutSeconds: getEnvInt("X402_MAX_TIMEOUT_SECONDS", 300),
			Symbols:           getEnvStringSlice("X402_SYMBOLS", nil),
			VerifyOnly:        getEnvBool("X402_VERIFY_ONLY", false),
			SignaturePrecheck: getEnvBool("X402_SIGNATURE_PRECHECK", false),
			ReputationProof:   getEnvBool("X402_REPUTATION_PROOF", false),
		},
		Logging: LoggingConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("X402_CATALOG_PATH", ""),
		},
		Escrow: EscrowConfig{
			URL:    getEnv("X402_ESCROW_URL", "https://escrow.ultravioletadao.xyz"),
			APIKey: getEnv("X402_ESCROW_API_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return configError("invalid configuration: %v", err)
	}
	if _, err := c.Payment.ParsedPrice(); err != nil {
		return err
	}
	for family, addr := range c.Payment.PayTo.ByFamily() {
		if err := utils.ValidateAddressForFamily(family, addr); err != nil {
			return configError("invalid payTo for %s: %v", family, err)
		}
	}
	return nil
}

// ParsedPrice returns the configured price, or a null decimal when unset.
func (p PaymentConfig) ParsedPrice() (decimal.NullDecimal, error) {
	if p.Price == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := utils.ParsePrice(p.Price)
	if err != nil {
		return decimal.NullDecimal{}, configError("invalid X402_PRICE %q: %v", p.Price, err)
	}
	return decimal.NewNullDecimal(d), nil
}

// ByFamily returns the configured recipients keyed by chain family, omitting
// families with no recipient.
func (p PayToConfig) ByFamily() map[types.ChainFamily]string {
	out := make(map[types.ChainFamily]string)
	for family, addr := range map[types.ChainFamily]string{
		types.ChainEVM:      p.EVM,
		types.ChainSVM:      p.SVM,
		types.ChainNEAR:     p.NEAR,
		types.ChainStellar:  p.Stellar,
		types.ChainAlgorand: p.Algorand,
	} {
		if addr != "" {
			out[family] = addr
		}
	}
	return out
}

// Registry loads the YAML catalog when a path is set, otherwise the built-in
// catalog.
func (c *Config) Registry() (*networks.Registry, error) {
	if c.Catalog.Path != "" {
		return networks.LoadRegistryFile(c.Catalog.Path)
	}
	return networks.NewDefaultRegistry()
}

func configError(format string, args ...interface{}) error {
	return types.NewError(types.ErrCodeConfigError, types.ErrNotConfigured, format, args...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
