package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wycliu/parkrwa-backend/api/controllers"
	"github.com/wycliu/parkrwa-backend/api/middleware"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/internal/txbuilder"
	"github.com/wycliu/parkrwa-backend/pkg/config"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	ledgerPinger controllers.Pinger,
	cachePinger controllers.Pinger,
	spacesService spaces.Service,
	snapshots controllers.SnapshotReader,
	builder *txbuilder.Builder,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ledgerPinger, cachePinger, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/spaces", func(r chi.Router) {
			r.Get("/", controllers.SpacesList(spacesService, snapshots, logg))
			r.Get("/available", controllers.SpacesAvailable(spacesService, snapshots, logg))
			r.Get("/owned/{address}", controllers.SpacesOwned(spacesService, snapshots, logg))
			r.Get("/{id}", controllers.SpaceFetch(spacesService, logg))
		})

		r.Get("/lot", controllers.LotFetch(spacesService, logg))
		r.Get("/payments", controllers.PaymentsList(spacesService, snapshots, logg))

		r.Route("/tx", func(r chi.Router) {
			r.Post("/payment", controllers.TxPayment(builder, spacesService, logg))
			r.Post("/purchase", controllers.TxPurchase(builder, spacesService, logg))
			r.Post("/set-price", controllers.TxSetPrice(builder, logg))
			r.Post("/transfer", controllers.TxTransfer(builder, logg))
			r.Post("/mint", controllers.TxMint(builder, logg))
			r.Post("/outcome", controllers.TxOutcome(logg))
		})
	})

	return r
}
