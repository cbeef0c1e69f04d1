// Package httpapi exposes the wallet service over HTTP for trusted internal
// collaborators: wallet provisioning keyed by phone number and share-based
// transfer submission.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/custodia-labs/solana-wallet-middleware/pkg/app/http"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet/service"
)

const defaultRequestTimeout = 60 * time.Second

// NewRouter assembles the API routes.
func NewRouter(svc service.Service, logger *zap.Logger, monitoringEnabled bool) http.Handler {
	h := NewHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Post("/create", apphttp.HandleError(h.Create))
	r.Post("/sign", apphttp.HandleError(h.Sign))
	r.Get("/health", apphttp.HandleError(h.Health))

	if monitoringEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
