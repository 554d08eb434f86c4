package shoppinglists

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db"
	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
	"github.com/naijamall/naijamall-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, list *models.ShoppingList) error {
	return r.db.WithContext(ctx).Create(list).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShoppingList, error) {
	var list models.ShoppingList
	err := withChildren(r.db.WithContext(ctx)).First(&list, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.ShoppingList, error) {
	var list models.ShoppingList
	err := withChildren(db.ForUpdate(r.db.WithContext(ctx))).First(&list, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// ListFilters narrow shopping list queries. Zero values match everything.
type ListFilters struct {
	Status       *enums.ShoppingListStatus
	BuyerID      *uuid.UUID
	AssignedToID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.ShoppingList, string, error) {
	query := r.db.WithContext(ctx).Model(&models.ShoppingList{}).Preload("Items")
	if filters.Status != nil {
		query = query.Where("shopping_lists.status = ?", *filters.Status)
	}
	if filters.BuyerID != nil {
		query = query.Where("shopping_lists.buyer_id = ?", *filters.BuyerID)
	}
	if filters.AssignedToID != nil {
		query = query.Where("shopping_lists.assigned_to = ?", *filters.AssignedToID)
	}
	query, err := pagination.Apply(query, "shopping_lists", params)
	if err != nil {
		return nil, "", err
	}
	var rows []models.ShoppingList
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, params.Limit, func(l models.ShoppingList) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	return rows, next, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.ShoppingList{}).Where("id = ?", id).Updates(updates).Error
}

func (r *Repository) AppendAssignment(ctx context.Context, assignment *models.ShoppingListAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func withChildren(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Items").
		Preload("AssignmentHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("assigned_at ASC")
		})
}
