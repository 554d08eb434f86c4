package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db/models"
	"github.com/naijamall/naijamall-backend/pkg/enums"
)

// SeedUser inserts an active user holding role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		ID:        id,
		Email:     string(role) + "-" + id.String()[:8] + "@naijamall.test",
		FirstName: string(role),
		LastName:  id.String()[:8],
		Role:      role,
		IsActive:  true,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedProduct inserts an available product owned by sellerID.
func SeedProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		SellerID:    sellerID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsAvailable: true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}
