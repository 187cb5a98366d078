package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bazarmoz/bazar-backend/api/controllers"
	"github.com/bazarmoz/bazar-backend/api/middleware"
	assistantsvc "github.com/bazarmoz/bazar-backend/internal/assistant"
	cartsvc "github.com/bazarmoz/bazar-backend/internal/cart"
	catalogsvc "github.com/bazarmoz/bazar-backend/internal/catalog"
	checkoutsvc "github.com/bazarmoz/bazar-backend/internal/checkout"
	deliverysvc "github.com/bazarmoz/bazar-backend/internal/delivery"
	historysvc "github.com/bazarmoz/bazar-backend/internal/history"
	ordersvc "github.com/bazarmoz/bazar-backend/internal/orders"
	usersvc "github.com/bazarmoz/bazar-backend/internal/users"
	"github.com/bazarmoz/bazar-backend/pkg/auth/session"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db"
	"github.com/bazarmoz/bazar-backend/pkg/logger"
	"github.com/bazarmoz/bazar-backend/pkg/metrics"
	"github.com/bazarmoz/bazar-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Grouping them in a
// struct keeps main's wiring readable as the route table grows.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Redis   *redis.Client
	Session session.AccessSessionChecker

	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Users     usersvc.Service
	Catalog   catalogsvc.Service
	Cart      cartsvc.Service
	Checkout  checkoutsvc.Service
	Delivery  *deliverysvc.Calculator
	Orders    ordersvc.Service
	History   historysvc.Service
	Assistant assistantsvc.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(),
		middleware.Logging(logg),
	)
	if d.HTTPMetrics != nil {
		r.Use(middleware.Metrics(d.HTTPMetrics))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	signupPolicy := middleware.NewAuthRateLimitPolicy(
		"signup",
		cfg.AuthRateLimit.SignupWindow,
		cfg.AuthRateLimit.SignupIPLimit,
		cfg.AuthRateLimit.SignupEmailLimit,
	)

	var redisP redis.Pinger
	if d.Redis != nil {
		redisP = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, redisP))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public storefront surface.
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signupPolicy, d.Redis, logg)).Post("/signup", controllers.AuthSignup(d.Users, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Users, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(d.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(d.Catalog, logg))
			r.Get("/{familyId}/variant", controllers.ProductPickVariant(d.Catalog, logg))
		})

		r.Post("/delivery/quote", controllers.DeliveryQuote(d.Delivery, logg))

		r.Post("/assistant/search", controllers.AssistantSearch(d.Assistant, logg))

		// Authenticated shopper surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Session, logg))

			r.Post("/auth/logout", controllers.AuthLogout(d.Users, logg))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", controllers.ProfileFetch(d.Users, logg))
				r.Put("/location", controllers.ProfileUpdateLocation(d.Users, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.Cart, logg))
				r.Post("/", controllers.CartAddItem(d.Cart, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(d.Cart, logg))
				r.Delete("/", controllers.CartClear(d.Cart, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/quote", controllers.CheckoutQuote(d.Checkout, logg))
				r.Post("/", controllers.CheckoutCommit(d.Checkout, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(d.Orders, logg))
				r.Get("/{orderId}", controllers.OrderFetch(d.Orders, logg))
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", controllers.HistoryList(d.History, logg))
				r.Post("/", controllers.HistoryRecord(d.History, logg))
			})

			r.Post("/assistant/chat", controllers.AssistantChat(d.Assistant, logg))
			r.Post("/assistant/recommendations", controllers.AssistantRecommendations(d.Assistant, logg))
			r.Get("/chats/{chatId}/messages", controllers.ChatMessages(d.Assistant, logg))
		})
	})

	return r
}
