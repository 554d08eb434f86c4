package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/dbtest"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *Repository, func() []models.OutboxEvent) {
	t.Helper()
	client := dbtest.Client(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(repo, client, outbox.NewService(outbox.NewRepository(client.DB()), nil))
	require.NoError(t, err)
	events := func() []models.OutboxEvent {
		var rows []models.OutboxEvent
		require.NoError(t, client.DB().Find(&rows).Error)
		return rows
	}
	return svc, repo, events
}

func TestUpdateRoleHierarchy(t *testing.T) {
	svc, repo, events := newTestService(t)
	db := repo.db
	admin := dbtest.SeedUser(t, db, enums.RoleAdmin)
	buyer := dbtest.SeedUser(t, db, enums.RoleBuyer)
	peer := dbtest.SeedUser(t, db, enums.RoleAdmin)
	ctx := context.Background()

	dto, err := svc.UpdateRole(ctx, UpdateRoleInput{UserID: buyer.ID, NewRole: enums.RoleRider, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleRider, dto.Role)

	stored, err := repo.FindByID(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleRider, stored.Role)
	require.Len(t, events(), 1)
	assert.Equal(t, enums.EventUserRoleChanged, events()[0].EventType)

	_, err = svc.UpdateRole(ctx, UpdateRoleInput{UserID: buyer.ID, NewRole: enums.RoleAdmin, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateRole(ctx, UpdateRoleInput{UserID: peer.ID, NewRole: enums.RoleBuyer, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateRole(ctx, UpdateRoleInput{UserID: admin.ID, NewRole: enums.RoleBuyer, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.UpdateRole(ctx, UpdateRoleInput{UserID: uuid.New(), NewRole: enums.RoleBuyer, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Len(t, events(), 1)
}

func TestDeleteUserSoftDeletes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	db := repo.db
	admin := dbtest.SeedUser(t, db, enums.RoleAdmin)
	agent := dbtest.SeedUser(t, db, enums.RoleAgent)
	super := dbtest.SeedUser(t, db, enums.RoleSuperAdmin)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, DeleteUserInput{UserID: agent.ID, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin}))
	_, err := repo.FindByID(ctx, agent.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var raw models.User
	require.NoError(t, db.Unscoped().First(&raw, "id = ?", agent.ID).Error)
	assert.False(t, raw.IsActive)
	assert.True(t, raw.DeletedAt.Valid)

	err = svc.Delete(ctx, DeleteUserInput{UserID: super.ID, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	err = svc.Delete(ctx, DeleteUserInput{UserID: admin.ID, ActorUserID: agent.ID, ActorRole: enums.RoleAgent})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestUpdateStatusTogglesActive(t *testing.T) {
	svc, repo, events := newTestService(t)
	db := repo.db
	admin := dbtest.SeedUser(t, db, enums.RoleAdmin)
	rider := dbtest.SeedUser(t, db, enums.RoleRider)
	peer := dbtest.SeedUser(t, db, enums.RoleAdmin)
	cs := dbtest.SeedUser(t, db, enums.RoleCustomerService)
	ctx := context.Background()

	dto, err := svc.UpdateStatus(ctx, UpdateStatusInput{UserID: rider.ID, IsActive: false, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
	riders, err := svc.ListActiveByRole(ctx, enums.RoleRider)
	require.NoError(t, err)
	assert.Empty(t, riders)
	require.Len(t, events(), 1)
	assert.Equal(t, enums.EventUserStatusChanged, events()[0].EventType)

	dto, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: rider.ID, IsActive: false, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, dto.IsActive)
	assert.Len(t, events(), 1)

	dto, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: rider.ID, IsActive: true, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, dto.IsActive)
	stored, err := repo.FindByID(ctx, rider.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Len(t, events(), 2)

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: peer.ID, IsActive: false, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: admin.ID, IsActive: false, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: rider.ID, IsActive: false, ActorUserID: cs.ID, ActorRole: enums.RoleCustomerService})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{UserID: uuid.New(), IsActive: false, ActorUserID: admin.ID, ActorRole: enums.RoleAdmin})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	stored, err = repo.FindByID(ctx, peer.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Len(t, events(), 2)
}

func TestListAndCounts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	db := repo.db
	dbtest.SeedUser(t, db, enums.RoleRider)
	dbtest.SeedUser(t, db, enums.RoleRider)
	dbtest.SeedUser(t, db, enums.RoleAgent)
	ctx := context.Background()

	riders, err := svc.ListActiveByRole(ctx, enums.RoleRider)
	require.NoError(t, err)
	assert.Len(t, riders, 2)

	role := enums.RoleRider
	page, err := svc.List(ctx, enums.RoleAdmin, ListFilters{Role: &role}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)
	assert.NotEmpty(t, page.NextCursor)

	page, err = svc.List(ctx, enums.RoleAdmin, ListFilters{Search: "AGENT"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Users, 1)

	_, err = svc.List(ctx, enums.RoleCustomerService, ListFilters{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	counts, err := repo.CountByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[enums.RoleRider])

	assert.Len(t, svc.AssignableRoles(enums.RoleCustomerService), 4)
}
