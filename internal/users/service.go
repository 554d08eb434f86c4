package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/internal/roles"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
	"github.com/naijamall/naijamall-backend/pkg/outbox"
	"github.com/naijamall/naijamall-backend/pkg/outbox/payloads"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service covers the admin surface over user roles and accounts.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, actorRole enums.Role, filters ListFilters, params pagination.Params) (*UserList, error)
	ListActiveByRole(ctx context.Context, role enums.Role) ([]UserDTO, error)
	AssignableRoles(actorRole enums.Role) []RoleOption
	UpdateRole(ctx context.Context, input UpdateRoleInput) (*UserDTO, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*UserDTO, error)
	Delete(ctx context.Context, input DeleteUserInput) error
}

type UpdateRoleInput struct {
	UserID      uuid.UUID
	NewRole     enums.Role
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

// UpdateStatusInput activates or deactivates an account.
type UpdateStatusInput struct {
	UserID      uuid.UUID
	IsActive    bool
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type DeleteUserInput struct {
	UserID      uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   enums.Role
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

func NewService(repo *Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context, actorRole enums.Role, filters ListFilters, params pagination.Params) (*UserList, error) {
	if !actorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return &UserList{Users: out, NextCursor: next}, nil
}

func (s *service) ListActiveByRole(ctx context.Context, role enums.Role) ([]UserDTO, error) {
	rows, err := s.repo.ListActiveByRole(ctx, role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users by role")
	}
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) AssignableRoles(actorRole enums.Role) []RoleOption {
	visible := roles.VisibleRoles(actorRole)
	out := make([]RoleOption, 0, len(visible))
	for _, role := range visible {
		out = append(out, RoleOption{Role: role, Level: role.Level()})
	}
	return out
}

func (s *service) UpdateRole(ctx context.Context, input UpdateRoleInput) (*UserDTO, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var updated *UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindForUpdate(ctx, input.UserID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := roles.AuthorizeRoleChange(roles.RoleChange{
			ActorID:    input.ActorUserID,
			ActorRole:  input.ActorRole,
			TargetID:   user.ID,
			TargetRole: user.Role,
			NewRole:    input.NewRole,
		}); err != nil {
			return err
		}
		oldRole := user.Role
		if oldRole == input.NewRole {
			updated = FromModel(user)
			return nil
		}
		if err := repo.UpdateRole(ctx, user.ID, input.NewRole); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
		}
		user.Role = input.NewRole
		updated = FromModel(user)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRoleChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.UserRoleChangedEvent{
				UserID:  user.ID,
				OldRole: string(oldRole),
				NewRole: string(input.NewRole),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus flips is_active under the same hierarchy rule as deletion. Deactivated users drop
// out of assignee lookups but keep their order history.
func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*UserDTO, error) {
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var updated *UserDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindForUpdate(ctx, input.UserID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := roles.AuthorizeManage(input.ActorUserID, input.ActorRole, user.ID, user.Role); err != nil {
			return err
		}
		if user.IsActive == input.IsActive {
			updated = FromModel(user)
			return nil
		}
		if err := repo.UpdateActive(ctx, user.ID, input.IsActive); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user status")
		}
		user.IsActive = input.IsActive
		updated = FromModel(user)

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserStatusChanged,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, Role: string(input.ActorRole)},
			Data: payloads.UserStatusChangedEvent{
				UserID:   user.ID,
				IsActive: input.IsActive,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, input DeleteUserInput) error {
	if input.ActorUserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ActorRole.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindForUpdate(ctx, input.UserID)
		if err != nil {
			return mapLoadError(err)
		}
		if err := roles.AuthorizeManage(input.ActorUserID, input.ActorRole, user.ID, user.Role); err != nil {
			return err
		}
		if err := repo.SoftDelete(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		return nil
	})
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
}
