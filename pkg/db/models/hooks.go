package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Primary keys are assigned client-side so rows carry their id before insert on every dialect.

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (e *OrderTrackingEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (a *OrderAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (d *PaymentDistribution) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

func (a *PaymentAttempt) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (s *ShoppingList) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (i *ShoppingListItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (a *ShoppingListAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
