// Package dbtest opens throwaway SQLite databases carrying the service schema for tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/naijamall/naijamall-backend/pkg/db"
)

// schema mirrors the goose migrations with SQLite types. Money columns are TEXT so decimals
// round-trip exactly.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		phone TEXT,
		role TEXT NOT NULL DEFAULT 'buyer',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE products (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		is_available BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		order_number TEXT NOT NULL UNIQUE,
		buyer_id TEXT NOT NULL,
		shipping_street TEXT,
		shipping_city TEXT,
		shipping_state TEXT,
		shipping_zip_code TEXT,
		shipping_phone TEXT,
		payment_method TEXT NOT NULL,
		payment_reference TEXT,
		items_total TEXT NOT NULL,
		escrow_fee TEXT NOT NULL,
		market_procurement_fee TEXT NOT NULL,
		delivery_fee TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_status TEXT NOT NULL DEFAULT 'pending',
		delivery_status TEXT NOT NULL DEFAULT 'not_assigned',
		rider_id TEXT,
		assigned_agent_id TEXT,
		customer_service_id TEXT,
		buyer_confirmed BOOLEAN NOT NULL DEFAULT 0,
		buyer_confirmed_at DATETIME,
		buyer_feedback TEXT,
		cancellation_reason TEXT,
		cancelled_by TEXT,
		cancelled_at DATETIME,
		stock_released BOOLEAN NOT NULL DEFAULT 0,
		estimated_delivery_time DATETIME,
		actual_delivery_time DATETIME,
		buyer_notes TEXT,
		internal_notes TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE order_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		unit_price TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	)`,
	`CREATE TABLE order_tracking_entries (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		status TEXT NOT NULL,
		description TEXT NOT NULL,
		location TEXT,
		created_at DATETIME,
		UNIQUE (order_id, seq)
	)`,
	`CREATE TABLE order_assignments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		assigned_by TEXT,
		assigned_to TEXT NOT NULL,
		role TEXT NOT NULL,
		notes TEXT,
		assigned_at DATETIME
	)`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		buyer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		gateway TEXT NOT NULL DEFAULT 'paystack',
		reference TEXT NOT NULL UNIQUE,
		gateway_reference TEXT,
		transaction_id TEXT,
		authorization_url TEXT,
		access_code TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		escrow_status TEXT NOT NULL DEFAULT 'not_started',
		escrow_held_at DATETIME,
		escrow_released_at DATETIME,
		escrow_release_reason TEXT,
		fee_escrow_fee TEXT,
		fee_market_procurement_fee TEXT,
		fee_seller_commission TEXT,
		fee_rider_fee TEXT,
		fee_platform_total TEXT,
		refund_amount TEXT,
		refund_reason TEXT,
		refund_refunded_at DATETIME,
		refund_reference TEXT,
		failure_reason TEXT,
		failed_at DATETIME,
		gateway_response BLOB,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payment_distributions (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		recipient_id TEXT,
		recipient_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_at DATETIME,
		created_at DATETIME
	)`,
	`CREATE TABLE payment_attempts (
		id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		reference TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE shopping_lists (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		shipping_street TEXT,
		shipping_city TEXT,
		shipping_state TEXT,
		shipping_zip_code TEXT,
		shipping_phone TEXT,
		buyer_notes TEXT,
		assigned_to TEXT,
		customer_service_id TEXT,
		converted_order_id TEXT,
		internal_notes TEXT,
		estimated_total TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE shopping_list_items (
		id TEXT PRIMARY KEY,
		shopping_list_id TEXT NOT NULL,
		product_id TEXT,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		requested_price TEXT,
		notes TEXT
	)`,
	`CREATE TABLE shopping_list_assignments (
		id TEXT PRIMARY KEY,
		shopping_list_id TEXT NOT NULL,
		assigned_by TEXT,
		assigned_to TEXT NOT NULL,
		role TEXT NOT NULL,
		notes TEXT,
		assigned_at DATETIME
	)`,
	`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL,
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME,
		created_at DATETIME
	)`,
}

// Open returns a GORM handle on a private in-memory database with the full schema applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=0"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return conn
}

// Client wraps Open in the transactional client used by services.
func Client(t *testing.T) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}
