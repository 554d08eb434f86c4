package enums

import "fmt"

type ShoppingListStatus string

const (
	ShoppingListPending   ShoppingListStatus = "pending"
	ShoppingListReviewed  ShoppingListStatus = "reviewed"
	ShoppingListAssigned  ShoppingListStatus = "assigned"
	ShoppingListConverted ShoppingListStatus = "converted"
	ShoppingListCancelled ShoppingListStatus = "cancelled"
)

var validShoppingListStatuses = []ShoppingListStatus{
	ShoppingListPending,
	ShoppingListReviewed,
	ShoppingListAssigned,
	ShoppingListConverted,
	ShoppingListCancelled,
}

func (s ShoppingListStatus) String() string {
	return string(s)
}

func (s ShoppingListStatus) IsValid() bool {
	for _, candidate := range validShoppingListStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsClosed reports whether the list can no longer change.
func (s ShoppingListStatus) IsClosed() bool {
	return s == ShoppingListConverted || s == ShoppingListCancelled
}

func ParseShoppingListStatus(value string) (ShoppingListStatus, error) {
	for _, candidate := range validShoppingListStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shopping list status %q", value)
}
