package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naijamall/naijamall-backend/pkg/logger"
	"github.com/naijamall/naijamall-backend/pkg/migrate"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "migrate-test", Output: io.Discard})
}

func TestRunCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), testLogger(), &out, dir, []string{"create", "add rider payouts"}))
	assert.Contains(t, out.String(), "_add_rider_payouts.sql")

	require.NoError(t, run(context.Background(), testLogger(), &out, dir, []string{"validate"}))
}

func TestRunRejectsBadInvocations(t *testing.T) {
	ctx := context.Background()
	assert.ErrorContains(t, run(ctx, testLogger(), io.Discard, t.TempDir(), []string{"create"}), "name")
	assert.ErrorContains(t, run(ctx, testLogger(), io.Discard, "", []string{"seed"}), "unknown command")
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	applied := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	require.NoError(t, printStatus(&out, []migrate.Status{
		{Version: 20260302090000, File: "20260302090000_create_users_and_products.sql", Applied: true, AppliedAt: applied},
		{Version: 20260302090100, File: "20260302090100_create_orders.sql"},
	}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "2026-03-02 09:05:00")
	assert.Contains(t, lines[2], "pending")
}
