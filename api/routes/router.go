package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/naijamall/naijamall-backend/api/controllers"
	admincontrollers "github.com/naijamall/naijamall-backend/api/controllers/admin"
	agentcontrollers "github.com/naijamall/naijamall-backend/api/controllers/agents"
	deliverycontrollers "github.com/naijamall/naijamall-backend/api/controllers/deliveries"
	ordercontrollers "github.com/naijamall/naijamall-backend/api/controllers/orders"
	paymentcontrollers "github.com/naijamall/naijamall-backend/api/controllers/payments"
	sellercontrollers "github.com/naijamall/naijamall-backend/api/controllers/sellers"
	listcontrollers "github.com/naijamall/naijamall-backend/api/controllers/shoppinglists"
	supportcontrollers "github.com/naijamall/naijamall-backend/api/controllers/support"
	"github.com/naijamall/naijamall-backend/api/middleware"
	"github.com/naijamall/naijamall-backend/internal/agents"
	"github.com/naijamall/naijamall-backend/internal/deliveries"
	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/payments"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/internal/shoppinglists"
	"github.com/naijamall/naijamall-backend/internal/support"
	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type webhookHandler interface {
	Handle(ctx context.Context, body []byte, signature string) error
}

type reportService interface {
	Dashboard(ctx context.Context, actorRole enums.Role) (*reports.Dashboard, error)
	Revenue(ctx context.Context, actorRole enums.Role, from, to time.Time) (*reports.RevenueReport, error)
	SellerAnalytics(ctx context.Context, sellerID uuid.UUID, actorRole enums.Role, period reports.Period) (*reports.SellerAnalytics, error)
}

// Dependencies are the collaborators the router hands to controllers. Nil stores disable
// idempotency and rate limiting.
type Dependencies struct {
	DB               db.Pinger
	Redis            db.Pinger
	IdempotencyStore redis.IdempotencyStore
	RateLimitStore   counterStore
	Metrics          prometheus.Gatherer
	HTTPMetrics      *metrics.HTTPMetrics

	Orders        orders.Service
	Payments      payments.Service
	Webhooks      webhookHandler
	ShoppingLists shoppinglists.Service
	Deliveries    deliveries.Service
	Agents        agents.Service
	Support       support.Service
	Users         users.Service
	Reports       reportService
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	paymentPolicy := middleware.NewRateLimitPolicy("payment-initialize", time.Minute, cfg.App.PaymentRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{"db": deps.DB, "redis": deps.Redis}))
	})
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", paymentcontrollers.PaystackWebhook(deps.Webhooks, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.IdempotencyStore, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/", ordercontrollers.ListMine(deps.Orders, logg))
			r.Get("/{orderID}", ordercontrollers.Detail(deps.Orders, logg))
			r.Patch("/{orderID}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.Post("/{orderID}/confirm", ordercontrollers.ConfirmDelivery(deps.Orders, logg))
			r.Post("/{orderID}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.With(middleware.RequireMinRole(enums.RoleAdmin, logg)).Post("/{orderID}/assign-rider", ordercontrollers.AssignRider(deps.Orders, logg))
			r.With(middleware.RequireMinRole(enums.RoleCustomerService, logg)).Post("/{orderID}/assign-agent", ordercontrollers.AssignAgent(deps.Orders, logg))
			r.With(middleware.RequireMinRole(enums.RoleCustomerService, logg)).Patch("/{orderID}/notes", ordercontrollers.UpdateNotes(deps.Orders, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RateLimit(paymentPolicy, deps.RateLimitStore, logg)).Post("/initialize", paymentcontrollers.Initialize(deps.Payments, logg))
			r.Get("/verify/{reference}", paymentcontrollers.Verify(deps.Payments, logg))
			r.Get("/me", paymentcontrollers.ListMine(deps.Payments, logg))
			r.Get("/{paymentID}", paymentcontrollers.Detail(deps.Payments, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.RoleAdmin, logg))
				r.Post("/{paymentID}/refund", paymentcontrollers.Refund(deps.Payments, logg))
				r.Post("/{paymentID}/release-escrow", paymentcontrollers.ReleaseEscrow(deps.Payments, logg))
			})
		})

		r.Route("/shopping-lists", func(r chi.Router) {
			r.Post("/", listcontrollers.Create(deps.ShoppingLists, logg))
			r.Get("/mine", listcontrollers.ListMine(deps.ShoppingLists, logg))
			r.Get("/{listID}", listcontrollers.Detail(deps.ShoppingLists, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireMinRole(enums.RoleAgent, logg))
				r.Get("/", listcontrollers.List(deps.ShoppingLists, logg))
				r.Post("/{listID}/assign", listcontrollers.Assign(deps.ShoppingLists, logg))
				r.Patch("/{listID}/status", listcontrollers.UpdateStatus(deps.ShoppingLists, logg))
				r.Post("/{listID}/convert", listcontrollers.Convert(deps.ShoppingLists, logg))
			})
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleRider))
			r.Get("/available", deliverycontrollers.Available(deps.Deliveries, logg))
			r.Get("/me", deliverycontrollers.Mine(deps.Deliveries, logg))
			r.Get("/stats", deliverycontrollers.Stats(deps.Deliveries, logg))
			r.Post("/{orderID}/accept", deliverycontrollers.Accept(deps.Deliveries, logg))
			r.Patch("/{orderID}/status", deliverycontrollers.UpdateStatus(deps.Deliveries, logg))
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAgent))
			r.Get("/orders", agentcontrollers.Assigned(deps.Agents, logg))
			r.Get("/orders/{orderID}", agentcontrollers.Detail(deps.Agents, logg))
			r.Patch("/orders/{orderID}/status", agentcontrollers.UpdateStatus(deps.Agents, logg))
			r.Post("/orders/{orderID}/complete-shopping", agentcontrollers.CompleteShopping(deps.Agents, logg))
			r.Get("/stats", agentcontrollers.Stats(deps.Agents, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleSeller))
			r.Get("/analytics", sellercontrollers.Analytics(deps.Reports, logg))
		})

		r.Route("/support", func(r chi.Router) {
			r.Use(middleware.RequireMinRole(enums.RoleCustomerService, logg))
			r.Get("/orders", supportcontrollers.ListOrders(deps.Support, logg))
			r.Get("/orders/me", supportcontrollers.MyOrders(deps.Support, logg))
			r.Get("/orders/{orderID}", supportcontrollers.Detail(deps.Support, logg))
			r.Post("/orders/{orderID}/assign-agent", supportcontrollers.AssignAgent(deps.Support, logg))
			r.Patch("/orders/{orderID}/notes", supportcontrollers.UpdateNotes(deps.Support, logg))
			r.Get("/agents", supportcontrollers.ActiveAgents(deps.Support, logg))
			r.Get("/analytics", supportcontrollers.Analytics(deps.Support, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireMinRole(enums.RoleAdmin, logg))
			r.Get("/dashboard", admincontrollers.Dashboard(deps.Reports, logg))
			r.Get("/revenue", admincontrollers.Revenue(deps.Reports, logg))
			r.Get("/roles", admincontrollers.Roles(deps.Users, logg))
			r.Get("/users", admincontrollers.ListUsers(deps.Users, logg))
			r.Patch("/users/{userID}/role", admincontrollers.UpdateRole(deps.Users, logg))
			r.Patch("/users/{userID}/status", admincontrollers.UpdateUserStatus(deps.Users, logg))
			r.Delete("/users/{userID}", admincontrollers.DeleteUser(deps.Users, logg))
			r.Get("/orders", ordercontrollers.ListAll(deps.Orders, logg))
			r.Get("/riders", deliverycontrollers.ActiveRiders(deps.Deliveries, logg))
		})
	})

	return r
}
