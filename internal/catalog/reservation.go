// Package catalog reserves and restores product stock for orders.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/naijamall/naijamall-backend/pkg/errors"
)

// LineRequest asks for quantity units of a product.
type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

// ReservedLine is the price snapshot taken when stock was reserved.
type ReservedLine struct {
	ProductID   uuid.UUID
	SellerID    uuid.UUID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Violation explains why one requested line cannot be fulfilled.
type Violation struct {
	Index        int       `json:"index"`
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	Reason       string    `json:"reason"`
	RequestedQty int       `json:"requested_qty"`
	AvailableQty *int      `json:"available_qty,omitempty"`
}

const (
	ReasonNotFound     = "product_not_found"
	ReasonUnavailable  = "product_unavailable"
	ReasonInsufficient = "insufficient_stock"
	ReasonInvalidQty   = "invalid_quantity"
)

// Service reserves stock inside the caller's transaction.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &Service{repo: repo}, nil
}

// Reserve validates every line and, only when all pass, decrements stock. Any violation fails the
// whole call with VALIDATION_ERROR carrying one entry per failing line.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, lines []LineRequest) ([]ReservedLine, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	repo := s.repo.WithTx(tx)

	ids := uniqueProductIDs(lines)
	products, err := repo.LockByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	var violations []Violation
	requested := map[uuid.UUID]int{}
	for i, line := range lines {
		if line.Quantity < 1 {
			violations = append(violations, Violation{Index: i, ProductID: line.ProductID, Reason: ReasonInvalidQty, RequestedQty: line.Quantity})
			continue
		}
		product, ok := products[line.ProductID]
		if !ok {
			violations = append(violations, Violation{Index: i, ProductID: line.ProductID, Reason: ReasonNotFound, RequestedQty: line.Quantity})
			continue
		}
		if !product.IsAvailable {
			violations = append(violations, Violation{Index: i, ProductID: product.ID, ProductName: product.Name, Reason: ReasonUnavailable, RequestedQty: line.Quantity})
			continue
		}
		requested[product.ID] += line.Quantity
		if requested[product.ID] > product.Stock {
			available := product.Stock
			violations = append(violations, Violation{
				Index:        i,
				ProductID:    product.ID,
				ProductName:  product.Name,
				Reason:       ReasonInsufficient,
				RequestedQty: line.Quantity,
				AvailableQty: &available,
			})
		}
	}
	if len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%d item(s) cannot be ordered", len(violations))).WithDetails(map[string]any{
			"violations": violations,
		})
	}

	for _, id := range ids {
		ok, err := repo.DecrementStock(ctx, id, requested[id])
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed during checkout").WithDetails(map[string]any{"product_id": id})
		}
	}

	reserved := make([]ReservedLine, 0, len(lines))
	for _, line := range lines {
		product := products[line.ProductID]
		reserved = append(reserved, ReservedLine{
			ProductID:   product.ID,
			SellerID:    product.SellerID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
			Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return reserved, nil
}

// Restore returns previously reserved stock.
func (s *Service) Restore(ctx context.Context, tx *gorm.DB, lines []LineRequest) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		if err := repo.IncrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
	}
	return nil
}

func uniqueProductIDs(lines []LineRequest) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
