package orders

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// The lifecycle restated independently of state.go and the roles package.
var (
	lifecycleNext = map[enums.OrderStatus]enums.OrderStatus{
		enums.OrderStatusPending:          enums.OrderStatusConfirmed,
		enums.OrderStatusConfirmed:        enums.OrderStatusShopping,
		enums.OrderStatusShopping:         enums.OrderStatusReadyForDelivery,
		enums.OrderStatusReadyForDelivery: enums.OrderStatusOutForDelivery,
		enums.OrderStatusOutForDelivery:   enums.OrderStatusDelivered,
	}
	settableBy = map[enums.Role][]enums.OrderStatus{
		enums.RoleSeller: {enums.OrderStatusConfirmed, enums.OrderStatusShopping, enums.OrderStatusReadyForDelivery},
		enums.RoleAgent:  {enums.OrderStatusShopping, enums.OrderStatusReadyForDelivery},
		enums.RoleRider:  {enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered},
	}
)

// expectedUpdate is the error code UpdateStatus must return, or "" when the move succeeds.
func expectedUpdate(from, to enums.OrderStatus, role enums.Role, onOrder bool) pkgerrors.Code {
	if !role.IsAdmin() {
		if !slices.Contains(settableBy[role], to) || !onOrder {
			return pkgerrors.CodeForbidden
		}
	}
	if next, ok := lifecycleNext[from]; !ok || next != to {
		return pkgerrors.CodeInvalidTransition
	}
	return ""
}

type crew struct {
	admin *models.User
	rider *models.User
	agent *models.User
}

type actor struct {
	name    string
	id      uuid.UUID
	role    enums.Role
	onOrder bool
}

// orderAt places an order staffed by c and walks it to status.
func (f fixture) orderAt(t *testing.T, status enums.OrderStatus, c crew) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := f.placeOrder(t).ID
	require.NoError(t, f.conn.Model(&models.Order{}).Where("id = ?", id).Updates(map[string]any{
		"rider_id":          c.rider.ID,
		"delivery_status":   enums.DeliveryAssigned,
		"assigned_agent_id": c.agent.ID,
	}).Error)

	switch status {
	case enums.OrderStatusPending:
		return id
	case enums.OrderStatusCancelled:
		_, err := f.svc.CancelOrder(ctx, CancelOrderInput{OrderID: id, ActorID: f.buyer.ID, ActorRole: enums.RoleBuyer})
		require.NoError(t, err)
		return id
	}
	f.holdPayment(t, id)
	if status == enums.OrderStatusRefunded {
		require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := f.repo.WithTx(tx).FindForUpdate(ctx, id)
			if err != nil {
				return err
			}
			return f.svc.ApplyRefund(ctx, tx, order, Viewer{UserID: c.admin.ID, Role: enums.RoleAdmin}, "Out of stock at market")
		}))
		return id
	}
	for current := enums.OrderStatusConfirmed; current != status; current = lifecycleNext[current] {
		_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{
			OrderID: id, Status: lifecycleNext[current], ActorID: c.admin.ID, ActorRole: enums.RoleAdmin,
		})
		require.NoError(t, err, "walk to %s", status)
	}
	require.Equal(t, status, f.load(t, id).Status)
	return id
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	for _, from := range enums.OrderStatuses() {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.conn.Model(&models.Product{}).Where("1 = 1").Update("stock", 10_000).Error)

			c := crew{
				admin: dbtest.SeedUser(t, f.conn, enums.RoleAdmin),
				rider: dbtest.SeedUser(t, f.conn, enums.RoleRider),
				agent: dbtest.SeedUser(t, f.conn, enums.RoleAgent),
			}
			actors := []actor{
				{"buyer", f.buyer.ID, enums.RoleBuyer, true},
				{"rider", c.rider.ID, enums.RoleRider, true},
				{"seller", f.sellerA.ID, enums.RoleSeller, true},
				{"agent", c.agent.ID, enums.RoleAgent, true},
				{"customer_service", dbtest.SeedUser(t, f.conn, enums.RoleCustomerService).ID, enums.RoleCustomerService, false},
				{"admin", c.admin.ID, enums.RoleAdmin, false},
				{"super_admin", dbtest.SeedUser(t, f.conn, enums.RoleSuperAdmin).ID, enums.RoleSuperAdmin, false},
				{"other_rider", dbtest.SeedUser(t, f.conn, enums.RoleRider).ID, enums.RoleRider, false},
				{"other_seller", dbtest.SeedUser(t, f.conn, enums.RoleSeller).ID, enums.RoleSeller, false},
				{"other_agent", dbtest.SeedUser(t, f.conn, enums.RoleAgent).ID, enums.RoleAgent, false},
			}
			covered := map[enums.Role]bool{}
			for _, a := range actors {
				covered[a.role] = true
			}
			for _, role := range enums.Roles() {
				require.True(t, covered[role], "no actor for role %s", role)
			}

			shared := f.orderAt(t, from, c)
			for _, a := range actors {
				for _, to := range enums.OrderStatuses() {
					want := expectedUpdate(from, to, a.role, a.onOrder)
					name := fmt.Sprintf("%s to %s by %s", from, to, a.name)

					id := shared
					if want == "" {
						id = f.orderAt(t, from, c)
					}
					before := f.load(t, id)
					events := f.eventCount(t, enums.EventOrderStatusChanged)

					dto, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderID: id, Status: to, ActorID: a.id, ActorRole: a.role})
					after := f.load(t, id)

					if want != "" {
						require.Error(t, err, name)
						assert.True(t, pkgerrors.IsCode(err, want), "%s: want %s, got %v", name, want, err)
						assert.Equal(t, before.Status, after.Status, name)
						assert.Equal(t, before.PaymentStatus, after.PaymentStatus, name)
						assert.Equal(t, before.DeliveryStatus, after.DeliveryStatus, name)
						assert.Equal(t, before.TrackingHistory, after.TrackingHistory, name)
						assert.Equal(t, events, f.eventCount(t, enums.EventOrderStatusChanged), name)
						continue
					}

					require.NoError(t, err, name)
					assert.Equal(t, to, dto.Status, name)
					assert.Equal(t, to, after.Status, name)
					require.Len(t, after.TrackingHistory, len(before.TrackingHistory)+1, name)
					assert.Equal(t, before.TrackingHistory, after.TrackingHistory[:len(before.TrackingHistory)], name)
					last := after.TrackingHistory[len(after.TrackingHistory)-1]
					assert.Equal(t, string(to), last.Status, name)
					assert.Equal(t, len(before.TrackingHistory)+1, last.Seq, name)
					assert.Equal(t, events+1, f.eventCount(t, enums.EventOrderStatusChanged), name)
				}
			}
		})
	}
}
