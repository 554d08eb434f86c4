// Package wiring assembles the domain services shared by cmd/api and cmd/cron-worker.
package wiring

import (
	"fmt"

	"github.com/naijamall/naijamall-backend/internal/agents"
	"github.com/naijamall/naijamall-backend/internal/catalog"
	"github.com/naijamall/naijamall-backend/internal/deliveries"
	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/internal/payments"
	"github.com/naijamall/naijamall-backend/internal/reports"
	"github.com/naijamall/naijamall-backend/internal/settlement"
	"github.com/naijamall/naijamall-backend/internal/shoppinglists"
	"github.com/naijamall/naijamall-backend/internal/support"
	"github.com/naijamall/naijamall-backend/internal/users"
	"github.com/naijamall/naijamall-backend/pkg/config"
	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/metrics"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/paystack"
)

type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Paystack *paystack.Client
	Metrics  *metrics.PaymentMetrics
}

// Services is the fully wired domain layer.
type Services struct {
	Outbox        *outbox.Service
	OutboxRepo    *outbox.Repository
	PaymentsRepo  *payments.Repository
	Orders        orders.Service
	Payments      payments.Service
	ShoppingLists shoppinglists.Service
	Users         users.Service
	Reports       *reports.Service
	Deliveries    deliveries.Service
	Agents        agents.Service
	Support       support.Service
}

func NewServices(p Params) (*Services, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil || p.Paystack == nil {
		return nil, fmt.Errorf("config, logger, db and paystack client required")
	}
	gormDB := p.DB.DB()

	outboxRepo := outbox.NewRepository(gormDB)
	events := outbox.NewService(outboxRepo, p.Logger)

	userRepo := users.NewRepository(gormDB)
	userSvc, err := users.NewService(userRepo, p.DB, events)
	if err != nil {
		return nil, fmt.Errorf("users service: %w", err)
	}

	stock, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	escrow, err := settlement.NewEngine(events, p.Paystack, p.Metrics, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("settlement engine: %w", err)
	}

	calc := fees.NewCalculator(fees.FlatDeliveryFee{Amount: p.Config.Fees.DeliveryFee()})
	orderRepo := orders.NewRepository(gormDB)
	orderSvc, err := orders.NewService(orderRepo, p.DB, events, stock, escrow, userRepo, calc, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	paymentRepo := payments.NewRepository(gormDB)
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:      paymentRepo,
		Orders:    orderRepo,
		Tx:        p.DB,
		Outbox:    events,
		Gateway:   p.Paystack,
		Escrow:    escrow,
		Lifecycle: orderSvc,
		Users:     userRepo,
		Metrics:   p.Metrics,
		Logger:    p.Logger,
		Timeout:   p.Config.Paystack.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}

	listSvc, err := shoppinglists.NewService(shoppinglists.NewRepository(gormDB), p.DB, events, orderSvc, userRepo, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("shopping lists service: %w", err)
	}

	reportSvc, err := reports.NewService(reports.NewRepository(gormDB), userRepo)
	if err != nil {
		return nil, fmt.Errorf("reports service: %w", err)
	}
	deliverySvc, err := deliveries.NewService(orderSvc, reportSvc, userSvc)
	if err != nil {
		return nil, fmt.Errorf("deliveries service: %w", err)
	}
	agentSvc, err := agents.NewService(orderSvc, reportSvc)
	if err != nil {
		return nil, fmt.Errorf("agents service: %w", err)
	}
	supportSvc, err := support.NewService(orderSvc, reportSvc, userSvc)
	if err != nil {
		return nil, fmt.Errorf("support service: %w", err)
	}

	return &Services{
		Outbox:        events,
		OutboxRepo:    outboxRepo,
		PaymentsRepo:  paymentRepo,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		ShoppingLists: listSvc,
		Users:         userSvc,
		Reports:       reportSvc,
		Deliveries:    deliverySvc,
		Agents:        agentSvc,
		Support:       supportSvc,
	}, nil
}
