package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "nm:lock:cron", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "nm:lock:cron", 0)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release leaves the holder's lock in place.
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "nm:lock:cron")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReportsHolder(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("WORKER_ID", "cron-7")
	store := &memoryStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "nm:lock:cron", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	holder, err := lock.Holder(ctx)
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	holder, err = lock.Holder(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(holder, "cron-7/"), holder)

	// The key expired and another worker took it; releasing must not delete their lock.
	store.values["nm:lock:cron"] = "cron-8/other"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "cron-8/other", store.values["nm:lock:cron"])
}

func TestNewRedisLockValidatesInput(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(&memoryStore{}, "", time.Minute)
	assert.Error(t, err)
}
