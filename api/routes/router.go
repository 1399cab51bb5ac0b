package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimanidev/dukapos-backend/api/controllers"
	"github.com/kimanidev/dukapos-backend/api/middleware"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type Controllers struct {
	Health   *controllers.HealthController
	Sales    *controllers.SaleController
	Products *controllers.ProductController
	Sync     *controllers.SyncController
}

// New assembles the terminal's HTTP surface.
func New(logg *logger.Logger, c Controllers, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", c.Health.Live)
	r.Get("/readyz", c.Health.Ready)

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", c.Sales.Record)
			r.Get("/{saleID}", c.Sales.Get)
			r.Put("/{saleID}", c.Sales.Update)
			r.Delete("/{saleID}", c.Sales.Delete)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", c.Products.List)
			r.Get("/{productID}", c.Products.Get)
			r.Post("/{productID}/stock-adjustments", c.Products.AdjustStock)
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", c.Sync.Trigger)
			r.Get("/status", c.Sync.Status)
		})
	})

	return r
}
