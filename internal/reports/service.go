// Package reports aggregates orders and settlements for dashboards and workspace stats. Money is
// summed in Go with decimal arithmetic so results do not depend on the SQL dialect.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naijamall/naijamall-backend/internal/fees"
	"github.com/naijamall/naijamall-backend/internal/orders"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

const (
	recentOrdersLimit       = 10
	defaultAnalyticsWindow  = 30 * 24 * time.Hour
	dayLayout               = "2006-01-02"
	maxRevenueRange         = 366 * 24 * time.Hour
	defaultRevenueRangeDays = 30
)

// UserCounter counts live users per role.
type UserCounter interface {
	CountByRole(ctx context.Context) (map[enums.Role]int64, error)
}

type OrderCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
}

type RevenueSummary struct {
	Orders               int             `json:"orders"`
	Total                decimal.Decimal `json:"total"`
	EscrowFees           decimal.Decimal `json:"escrow_fees"`
	MarketProcurementFee decimal.Decimal `json:"market_procurement_fees"`
	DeliveryFees         decimal.Decimal `json:"delivery_fees"`
	PlatformEarnings     decimal.Decimal `json:"platform_earnings"`
}

type DailyRevenue struct {
	Date string `json:"date"`
	RevenueSummary
}

type RevenueReport struct {
	From    time.Time      `json:"from"`
	To      time.Time      `json:"to"`
	Summary RevenueSummary `json:"summary"`
	Daily   []DailyRevenue `json:"daily"`
}

type Dashboard struct {
	UsersByRole  map[enums.Role]int64 `json:"users_by_role"`
	Orders       OrderCounts          `json:"orders"`
	Revenue      RevenueSummary       `json:"revenue"`
	RecentOrders []orders.OrderDTO    `json:"recent_orders"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type OrderAnalytics struct {
	Since          time.Time                   `json:"since"`
	OrdersByDay    []DayCount                  `json:"orders_by_day"`
	OrdersByStatus map[enums.OrderStatus]int64 `json:"orders_by_status"`
}

type RiderStats struct {
	ActiveDeliveries    int64           `json:"active_deliveries"`
	CompletedDeliveries int64           `json:"completed_deliveries"`
	TotalEarnings       decimal.Decimal `json:"total_earnings"`
}

type AgentStats struct {
	TotalAssigned int64 `json:"total_assigned"`
	InProgress    int64 `json:"in_progress"`
	Completed     int64 `json:"completed"`
}

type Service struct {
	repo  *Repository
	users UserCounter
	now   func() time.Time
}

func NewService(repo *Repository, users UserCounter) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user counter required")
	}
	return &Service{repo: repo, users: users, now: time.Now}, nil
}

func (s *Service) Dashboard(ctx context.Context, actorRole enums.Role) (*Dashboard, error) {
	if !actorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	byStatus, err := s.repo.CountOrdersByStatus(ctx, OrderScope{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	revenue, err := s.repo.ReleasedRevenue(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue")
	}
	recent, err := s.repo.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent orders")
	}

	dash := &Dashboard{
		UsersByRole: byRole,
		Orders: OrderCounts{
			Pending:   byStatus[enums.OrderStatusPending],
			Delivered: byStatus[enums.OrderStatusDelivered],
			Cancelled: byStatus[enums.OrderStatusCancelled],
		},
		Revenue:      summarize(revenue),
		RecentOrders: make([]orders.OrderDTO, 0, len(recent)),
	}
	for _, count := range byStatus {
		dash.Orders.Total += count
	}
	for i := range recent {
		dash.RecentOrders = append(dash.RecentOrders, *orders.FromModel(&recent[i], actorRole))
	}
	return dash, nil
}

// Revenue reports released orders in [from, to). A zero to means now; a zero from means 30 days
// before to.
func (s *Service) Revenue(ctx context.Context, actorRole enums.Role, from, to time.Time) (*RevenueReport, error) {
	if !actorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultRevenueRangeDays)
	}
	if !from.Before(to) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must be before end date")
	}
	if to.Sub(from) > maxRevenueRange {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range is limited to one year")
	}
	rows, err := s.repo.ReleasedRevenue(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load revenue")
	}

	report := &RevenueReport{From: from, To: to, Summary: summarize(rows), Daily: []DailyRevenue{}}
	byDay := map[string][]RevenueRow{}
	var days []string
	for _, row := range rows {
		day := row.ReleasedAt.UTC().Format(dayLayout)
		if _, seen := byDay[day]; !seen {
			days = append(days, day)
		}
		byDay[day] = append(byDay[day], row)
	}
	sort.Strings(days)
	for _, day := range days {
		report.Daily = append(report.Daily, DailyRevenue{Date: day, RevenueSummary: summarize(byDay[day])})
	}
	return report, nil
}

func summarize(rows []RevenueRow) RevenueSummary {
	sum := RevenueSummary{
		Orders:               len(rows),
		Total:                decimal.Zero,
		EscrowFees:           decimal.Zero,
		MarketProcurementFee: decimal.Zero,
		DeliveryFees:         decimal.Zero,
		PlatformEarnings:     decimal.Zero,
	}
	for _, row := range rows {
		sum.Total = sum.Total.Add(row.TotalAmount)
		sum.EscrowFees = sum.EscrowFees.Add(row.EscrowFee)
		sum.MarketProcurementFee = sum.MarketProcurementFee.Add(row.MarketProcurementFee)
		sum.DeliveryFees = sum.DeliveryFees.Add(row.DeliveryFee)
		if row.PlatformTotal.Valid {
			sum.PlatformEarnings = sum.PlatformEarnings.Add(row.PlatformTotal.Decimal)
		}
	}
	return sum
}

// OrderAnalytics counts orders per day and per status since the given time, 30 days by default.
func (s *Service) OrderAnalytics(ctx context.Context, actorRole enums.Role, since *time.Time) (*OrderAnalytics, error) {
	if !actorRole.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer service role required")
	}
	start := s.now().UTC().Add(-defaultAnalyticsWindow)
	if since != nil {
		start = since.UTC()
	}
	scope := OrderScope{Since: &start}
	byStatus, err := s.repo.CountOrdersByStatus(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	times, err := s.repo.OrderCreationTimes(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order dates")
	}
	out := &OrderAnalytics{Since: start, OrdersByStatus: byStatus, OrdersByDay: []DayCount{}}
	for _, t := range times {
		day := t.UTC().Format(dayLayout)
		if n := len(out.OrdersByDay); n > 0 && out.OrdersByDay[n-1].Date == day {
			out.OrdersByDay[n-1].Count++
			continue
		}
		out.OrdersByDay = append(out.OrdersByDay, DayCount{Date: day, Count: 1})
	}
	return out, nil
}

// RiderStats earns the rider share of the delivery fee on every settled delivery.
func (s *Service) RiderStats(ctx context.Context, riderID uuid.UUID) (*RiderStats, error) {
	scope := OrderScope{RiderID: &riderID}
	byStatus, err := s.repo.CountDeliveriesByStatus(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count deliveries")
	}
	settled, err := s.repo.SettledDeliveryFees(ctx, scope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery fees")
	}
	earned := decimal.Zero
	for _, fee := range settled {
		earned = earned.Add(fees.RiderShare(fee))
	}
	return &RiderStats{
		ActiveDeliveries:    byStatus[enums.DeliveryAssigned] + byStatus[enums.DeliveryPickedUp] + byStatus[enums.DeliveryInTransit],
		CompletedDeliveries: byStatus[enums.DeliveryDelivered],
		TotalEarnings:       earned,
	}, nil
}

func (s *Service) AgentStats(ctx context.Context, agentID uuid.UUID) (*AgentStats, error) {
	byStatus, err := s.repo.CountOrdersByStatus(ctx, OrderScope{AgentID: &agentID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	stats := &AgentStats{
		InProgress: byStatus[enums.OrderStatusShopping],
		Completed:  byStatus[enums.OrderStatusReadyForDelivery] + byStatus[enums.OrderStatusOutForDelivery] + byStatus[enums.OrderStatusDelivered],
	}
	for _, count := range byStatus {
		stats.TotalAssigned += count
	}
	return stats, nil
}

// Period is a trailing analytics window named the way the dashboards request it.
type Period string

const (
	Period7Days   Period = "7days"
	Period30Days  Period = "30days"
	Period90Days  Period = "90days"
	Period6Months Period = "6months"
	Period1Year   Period = "1year"
)

const topProductsLimit = 5

var periodDays = map[Period]int{
	Period7Days:   7,
	Period30Days:  30,
	Period90Days:  90,
	Period6Months: 180,
	Period1Year:   365,
}

// ParsePeriod accepts one of the named windows. Empty selects 30 days.
func ParsePeriod(raw string) (Period, error) {
	if raw == "" {
		return Period30Days, nil
	}
	period := Period(raw)
	if _, ok := periodDays[period]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid period").
			WithDetails(map[string]any{"period": raw, "allowed": []Period{Period7Days, Period30Days, Period90Days, Period6Months, Period1Year}})
	}
	return period, nil
}

type DailyAmount struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type ProductSales struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitsSold   int64     `json:"units_sold"`
}

type SellerAnalytics struct {
	Period         Period                      `json:"period"`
	Since          time.Time                   `json:"since"`
	Revenue        []DailyAmount               `json:"revenue"`
	UnitsSold      []DayCount                  `json:"units_sold"`
	TopProducts    []ProductSales              `json:"top_products"`
	OrdersByStatus map[enums.OrderStatus]int64 `json:"orders_by_status"`
}

// SellerAnalytics summarizes the caller's own line items over the period. Revenue counts
// delivered orders only; units and top products skip cancelled and refunded orders.
func (s *Service) SellerAnalytics(ctx context.Context, sellerID uuid.UUID, actorRole enums.Role, period Period) (*SellerAnalytics, error) {
	if actorRole != enums.RoleSeller {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid period").
			WithDetails(map[string]any{"period": period})
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.repo.SellerItems(ctx, sellerID, since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller items")
	}

	out := &SellerAnalytics{
		Period:         period,
		Since:          since,
		Revenue:        []DailyAmount{},
		UnitsSold:      []DayCount{},
		TopProducts:    []ProductSales{},
		OrdersByStatus: map[enums.OrderStatus]int64{},
	}
	seenOrders := map[uuid.UUID]bool{}
	byProduct := map[uuid.UUID]*ProductSales{}
	for _, row := range rows {
		day := row.OrderedAt.UTC().Format(dayLayout)
		if !seenOrders[row.OrderID] {
			seenOrders[row.OrderID] = true
			out.OrdersByStatus[row.Status]++
		}
		if row.Status == enums.OrderStatusDelivered {
			if n := len(out.Revenue); n > 0 && out.Revenue[n-1].Date == day {
				out.Revenue[n-1].Amount = out.Revenue[n-1].Amount.Add(row.Subtotal)
			} else {
				out.Revenue = append(out.Revenue, DailyAmount{Date: day, Amount: row.Subtotal})
			}
		}
		if row.Status.IsTerminal() {
			continue
		}
		if n := len(out.UnitsSold); n > 0 && out.UnitsSold[n-1].Date == day {
			out.UnitsSold[n-1].Count += int64(row.Quantity)
		} else {
			out.UnitsSold = append(out.UnitsSold, DayCount{Date: day, Count: int64(row.Quantity)})
		}
		product, ok := byProduct[row.ProductID]
		if !ok {
			product = &ProductSales{ProductID: row.ProductID, ProductName: row.ProductName}
			byProduct[row.ProductID] = product
		}
		product.UnitsSold += int64(row.Quantity)
	}

	for _, product := range byProduct {
		out.TopProducts = append(out.TopProducts, *product)
	}
	sort.Slice(out.TopProducts, func(i, j int) bool {
		a, b := out.TopProducts[i], out.TopProducts[j]
		if a.UnitsSold != b.UnitsSold {
			return a.UnitsSold > b.UnitsSold
		}
		return a.ProductName < b.ProductName
	})
	if len(out.TopProducts) > topProductsLimit {
		out.TopProducts = out.TopProducts[:topProductsLimit]
	}
	return out, nil
}
