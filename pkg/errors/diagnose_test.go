package errors

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestPostgresReadsBothDrivers(t *testing.T) {
	pgx := fmt.Errorf("insert payment: %w", &pgconn.PgError{Code: "23505", ConstraintName: "payments_reference_key", TableName: "payments"})
	got, ok := Postgres(pgx)
	if !ok || got.Code != "23505" || got.Constraint != "payments_reference_key" || got.Table != "payments" {
		t.Fatalf("unexpected pgx extraction %+v ok=%v", got, ok)
	}

	pqErr := fmt.Errorf("insert split: %w", &pq.Error{Code: "23503", Constraint: "escrow_splits_order_id_fkey"})
	got, ok = Postgres(pqErr)
	if !ok || got.Code != "23503" || got.Constraint != "escrow_splits_order_id_fkey" {
		t.Fatalf("unexpected pq extraction %+v ok=%v", got, ok)
	}

	if _, ok := Postgres(fmt.Errorf("plain")); ok {
		t.Fatalf("plain errors carry no postgres detail")
	}
}

func TestDiagnoseWalksChain(t *testing.T) {
	root := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := Wrap(CodeDependency, fmt.Errorf("lock order: %w", root), "database busy")

	d := Diagnose(err)
	if d.Code != CodeDependency || !d.Retryable {
		t.Fatalf("unexpected code %s retryable=%v", d.Code, d.Retryable)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected three links, got %v", d.Chain)
	}
	if d.PG == nil || d.PG.Code != "40001" {
		t.Fatalf("expected postgres detail, got %+v", d.PG)
	}

	fields := d.LogFields()
	if fields["pg_code"] != "40001" {
		t.Fatalf("expected pg_code field, got %v", fields)
	}
	if _, ok := Diagnose(New(CodeNotFound, "missing")).LogFields()["pg_code"]; ok {
		t.Fatalf("pg fields must be absent without a postgres error")
	}
	if Diagnose(nil).Summary != "" {
		t.Fatalf("nil error should produce an empty diagnosis")
	}
}
