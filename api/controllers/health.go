package controllers

import (
	"context"
	"net/http"

	"github.com/wycliu/parkrwa-backend/api/responses"
	"github.com/wycliu/parkrwa-backend/pkg/config"
	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

// Pinger reports reachability of the backing ledger endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ParkRWA-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the ledger RPC endpoint and, when wired, the snapshot
// cache. A nil dependency is skipped rather than failed so partial deployments
// still report ready for the surfaces they serve.
func HealthReady(cfg *config.Config, ledger, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ParkRWA-Env", cfg.App.Env)
		if ledger != nil {
			if err := ledger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ledger endpoint unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "snapshot cache unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
