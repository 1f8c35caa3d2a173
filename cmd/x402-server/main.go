package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	x402 "github.com/ultravioletadao/x402-go"
	"github.com/ultravioletadao/x402-go/config"
	"github.com/ultravioletadao/x402-go/facilitator"
	"github.com/ultravioletadao/x402-go/logger"
	"github.com/ultravioletadao/x402-go/metrics"
	"github.com/ultravioletadao/x402-go/networks"
	"github.com/ultravioletadao/x402-go/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "x402-server",
		Short:   "x402 payment gateway - multi-chain payment requirements and settlement",
		Version: x402.Version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newNetworksCmd())
	rootCmd.AddCommand(newRequirementsCmd())
	rootCmd.AddCommand(newSupportedCmd())
	rootCmd.AddCommand(newEscrowCmd())
	rootCmd.AddCommand(newReputationCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newNetworksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List the network catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			reg, err := cfg.Registry()
			if err != nil {
				return fmt.Errorf("loading catalog: %w", err)
			}
			return printNetworks(cmd.OutOrStdout(), reg)
		},
	}
}

func newRequirementsCmd() *cobra.Command {
	var payloadFile string
	var price string

	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Build payment requirements for a payment payload",
		Long: `Resolve the token a payment payload was signed for and print the
payment requirements that would be sent to the facilitator.

EXAMPLES:
  # Requirements with the configured price
  x402-server requirements --payload payment.json

  # Override the price
  x402-server requirements --payload payment.json --price 0.25
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequirements(cmd.OutOrStdout(), payloadFile, price)
		},
	}

	cmd.Flags().StringVarP(&payloadFile, "payload", "p", "", "payment payload JSON file, or - for stdin (required)")
	cmd.Flags().StringVar(&price, "price", "", "price in whole token units (default: X402_PRICE)")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func newSupportedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supported",
		Short: "Query the facilitator for supported payment kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			client := newFacilitator(cfg)
			resp, err := client.Supported(cmd.Context())
			if err != nil {
				return fmt.Errorf("querying facilitator: %w", err)
			}
			return writeIndented(cmd.OutOrStdout(), resp)
		},
	}
}

func runRequirements(out io.Writer, payloadFile, price string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if price != "" {
		cfg.Payment.Price = price
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	var raw []byte
	if payloadFile == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(payloadFile)
	}
	if err != nil {
		return fmt.Errorf("reading payload: %w", err)
	}

	payload, err := utils.ParsePaymentPayload(raw)
	if err != nil {
		return err
	}

	client, err := newClient(cfg, logger.NoopLogger{}, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	req, err := client.Requirements(payload)
	if err != nil {
		return err
	}
	return writeIndented(out, req)
}

func printNetworks(out io.Writer, reg *networks.Registry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tFAMILY\tCHAIN ID\tDEFAULT\tTOKENS\tENABLED")
	for _, id := range reg.Networks() {
		n, err := reg.Lookup(id)
		if err != nil {
			return err
		}
		chainID := "-"
		if n.ChainID != 0 {
			chainID = fmt.Sprintf("%d", n.ChainID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			n.ID, n.Family, chainID, n.DefaultSymbol, strings.Join(n.Symbols(), ","), n.Enabled)
	}
	return w.Flush()
}

func writeIndented(out io.Writer, v interface{}) error {
	data, err := utils.NormalizeJSON(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// Server command

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.NewZapLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		rec = metrics.NewPrometheusRecorder(promReg)
	}

	client, err := newClient(cfg, log, rec)
	if err != nil {
		return err
	}
	log.Info("starting x402-server", map[string]any{
		"version":     x402.Version,
		"facilitator": cfg.Facilitator.URL,
		"networks":    len(client.Registry().Enabled()),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newRouter(client, cfg, promReg, log),
		ReadHeaderTimeout: 10 * time.Second,
		// Settlement can take as long as the facilitator timeout.
		WriteTimeout: cfg.Facilitator.Timeout + 10*time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("server listening", map[string]any{"addr": httpServer.Addr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	log.Info("server stopped", nil)
	return nil
}

func newFacilitator(cfg *config.Config) *facilitator.HTTPClient {
	client := facilitator.NewHTTPClient(cfg.Facilitator.URL)
	client.Authorization = cfg.Facilitator.Authorization
	client.Timeout = cfg.Facilitator.Timeout
	return client
}

// newClient wires the registry, facilitator and payment settings from cfg.
func newClient(cfg *config.Config, log logger.Logger, rec metrics.Recorder) (*x402.X402, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	price, err := cfg.Payment.ParsedPrice()
	if err != nil {
		return nil, err
	}

	opts := []x402.Option{
		x402.WithLogger(log),
		x402.WithMetrics(rec),
		x402.WithTimeout(cfg.Facilitator.Timeout),
		x402.WithResource(cfg.Payment.Resource, cfg.Payment.Description, cfg.Payment.MimeType),
		x402.WithMaxTimeoutSeconds(cfg.Payment.MaxTimeoutSeconds),
		x402.WithVerifyOnly(cfg.Payment.VerifyOnly),
		x402.WithSignaturePrecheck(cfg.Payment.SignaturePrecheck),
		x402.WithReputationProof(cfg.Payment.ReputationProof),
	}
	if price.Valid {
		opts = append(opts, x402.WithPrice(price.Decimal))
	}
	for family, addr := range cfg.Payment.PayTo.ByFamily() {
		opts = append(opts, x402.WithPayTo(family, addr))
	}

	return x402.New(reg, newFacilitator(cfg), opts...)
}
