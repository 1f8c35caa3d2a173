package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ultravioletadao/x402-go/config"
	"github.com/ultravioletadao/x402-go/logger"
	paywall "github.com/ultravioletadao/x402-go/middleware"
	"github.com/ultravioletadao/x402-go/types"
)

// newRouter mounts health, metrics and the paid API behind the paywall.
func newRouter(p paywall.Processor, cfg *config.Config, gatherer prometheus.Gatherer, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(paywall.New(p, paywall.Config{
			Symbols:     cfg.Payment.Symbols,
			ExemptPaths: cfg.Server.ExemptPaths,
			Resource:    cfg.Payment.Resource,
			Logger:      log,
		}))
		r.Get("/premium", handlePremium)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handlePremium(w http.ResponseWriter, r *http.Request) {
	res, _ := paywall.PaymentFromContext(r.Context())
	body := map[string]interface{}{
		"message": "premium content",
	}
	if res != nil {
		body["payment"] = paymentSummary(res)
	}
	writeJSON(w, http.StatusOK, body)
}

func paymentSummary(res *types.SettlementResult) map[string]string {
	return map[string]string{
		"paymentId":   res.PaymentID,
		"network":     res.Network,
		"symbol":      res.Symbol,
		"payer":       res.Payer,
		"transaction": res.Transaction,
	}
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				log.Info("http request", map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      ww.Status(),
					"duration_ms": time.Since(start).Milliseconds(),
					"request_id":  middleware.GetReqID(r.Context()),
				})
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
