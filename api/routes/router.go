package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moussakone/librio-backend/api/controllers"
	"github.com/moussakone/librio-backend/api/middleware"
	"github.com/moussakone/librio-backend/internal/cart"
	"github.com/moussakone/librio-backend/internal/library"
	"github.com/moussakone/librio-backend/internal/payments"
	"github.com/moussakone/librio-backend/internal/webhooks"
	"github.com/moussakone/librio-backend/pkg/config"
	"github.com/moussakone/librio-backend/pkg/enums"
	"github.com/moussakone/librio-backend/pkg/logger"
	pkgredis "github.com/moussakone/librio-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient *pkgredis.Client,
	metricsRegistry *prometheus.Registry,
	cartRepo cart.Repository,
	cartService cart.Service,
	libraryRepo library.Repository,
	paymentsService payments.Service,
	webhookService webhooks.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// A nil *Client must stay a nil interface, or the middleware's nil
	// check never fires.
	var idemStore pkgredis.IdempotencyStore
	var cacheP pinger
	if redisClient != nil {
		idemStore = redisClient
		cacheP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cacheP))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	// The provider calls this unauthenticated, and pings it with GET.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", controllers.PaymentWebhook(webhookService, logg))
		r.Get("/payments", controllers.PaymentWebhookPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Put("/", controllers.CartReplace(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{listingId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{listingId}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/merge", controllers.CartMerge(cartService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", controllers.PaymentInitiate(paymentsService, logg))
			r.Get("/verify", controllers.PaymentVerify(paymentsService, logg))
		})

		r.Get("/library", controllers.LibraryList(libraryRepo, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/carts", func(r chi.Router) {
			r.Get("/", controllers.AdminCartList(cartRepo, logg))
			r.Get("/{userId}", controllers.AdminCartFetch(cartService, logg))
			r.Delete("/{userId}", controllers.AdminCartDelete(cartService, logg))
			r.Post("/{userId}/validate", controllers.AdminCartValidate(paymentsService, logg))
		})
	})

	return r
}
