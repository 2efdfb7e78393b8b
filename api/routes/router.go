package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/sweetshop-backend/api/controllers"
	"github.com/angelmondragon/sweetshop-backend/api/middleware"
	"github.com/angelmondragon/sweetshop-backend/internal/auth"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/orders"
	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/auth/session"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/metrics"
	"github.com/angelmondragon/sweetshop-backend/pkg/redis"
)

// Services groups the domain services served over HTTP.
type Services struct {
	Auth   auth.Service
	Sweets sweets.Service
	Cart   cart.Service
	Orders orders.Service
}

// Infra carries the optional collaborators. A nil Redis disables auth rate
// limiting and idempotent replay; a nil Sessions skips revocation checks.
type Infra struct {
	DB       db.Pinger
	Redis    *redis.Client
	Sessions session.AccessSessionChecker
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(infra.HTTP),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	loginLimit := noop
	registerLimit := noop
	idempotent := noop
	if infra.Redis != nil {
		loginLimit = middleware.AuthRateLimit(loginPolicy, infra.Redis, logg)
		registerLimit = middleware.AuthRateLimit(registerPolicy, infra.Redis, logg)
		idempotent = middleware.Idempotency(infra.Redis, []middleware.IdempotencyRule{
			middleware.IdempotentRoute(http.MethodPost, "/api/orders", cfg.Idempotency.OrderTTL),
		}, logg)
	}

	checks := map[string]db.Pinger{}
	if infra.DB != nil {
		checks["db"] = infra.DB
	}
	if infra.Redis != nil {
		checks["redis"] = infra.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, checks))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	authenticate := middleware.Auth(cfg.JWT, infra.Sessions, logg)
	adminOnly := middleware.RequireRole(enums.RoleAdmin, logg)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(registerLimit).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		r.With(loginLimit).Post("/login", controllers.AuthLogin(svc.Auth, logg))
		r.With(loginLimit).Post("/admin-login", controllers.AdminAuthLogin(svc.Auth, logg))
		r.With(authenticate).Post("/logout", controllers.AuthLogout(svc.Auth, logg))
	})

	r.Route("/api/sweets", func(r chi.Router) {
		r.Get("/", controllers.SweetList(svc.Sweets, cfg.Pagination, logg))
		r.Get("/search", controllers.SweetSearch(svc.Sweets, logg))
		r.Get("/{id}", controllers.SweetGet(svc.Sweets, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Post("/", controllers.SweetCreate(svc.Sweets, logg))
			r.Put("/{id}", controllers.SweetUpdate(svc.Sweets, logg))
			r.Delete("/{id}", controllers.SweetDelete(svc.Sweets, logg))
		})
	})

	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/", controllers.CartFetch(svc.Cart, logg))
		r.Post("/add", controllers.CartAddItem(svc.Cart, logg))
		r.Put("/update/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
		r.Delete("/remove/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
		r.Delete("/clear", controllers.CartClear(svc.Cart, logg))
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authenticate)
		r.With(idempotent).Post("/", controllers.OrderPlace(svc.Orders, logg))
		r.Get("/", controllers.OrderList(svc.Orders, cfg.Pagination, logg))
		r.Get("/{id}", controllers.OrderGet(svc.Orders, logg))
		r.With(adminOnly).Get("/{id}/audit", controllers.AdminOrderAudit(svc.Orders, logg))
	})

	return r
}

func noop(next http.Handler) http.Handler { return next }
