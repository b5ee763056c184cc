package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.Open(context.Background(), config.DatabaseConfig{
		Type:             "sqlite",
		ConnectionString: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, NewMemoryCache())
}

func TestGetUserIDIsStableAcrossCalls(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetUserID(ctx, 1000)
	require.NoError(t, err)

	second, err := svc.GetUserID(ctx, 1000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetUserIDPopulatesCache(t *testing.T) {
	cache := NewMemoryCache()
	store, err := storage.Open(context.Background(), config.DatabaseConfig{Type: "sqlite", ConnectionString: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := NewService(store, cache)

	id, err := svc.GetUserID(context.Background(), 2000)
	require.NoError(t, err)

	cached, ok := cache.Get(context.Background(), 2000)
	require.True(t, ok)
	assert.Equal(t, id.String(), cached)
}
