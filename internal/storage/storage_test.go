package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.DatabaseConfig{
		Type:             "sqlite",
		ConnectionString: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateUser(ctx, 1000)
	require.NoError(t, err)

	second, err := store.GetOrCreateUser(ctx, 1000)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateUserDistinctUIDsGetDistinctIdentities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.GetOrCreateUser(ctx, 1000)
	require.NoError(t, err)
	b, err := store.GetOrCreateUser(ctx, 1001)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateChatIsIdempotentByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := store.CreateChat(ctx, userID, "default", "first description")
	require.NoError(t, err)

	second, err := store.CreateChat(ctx, userID, "default", "ignored description")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "first description", second.Description)
}

func TestSoftDeleteChatCascadesToInteractions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	chat, err := store.CreateChat(ctx, userID, "default", "")
	require.NoError(t, err)
	_, err = store.InsertInteraction(ctx, chat.ID, "hi", "hello")
	require.NoError(t, err)

	require.NoError(t, store.SoftDeleteChat(ctx, userID, chat.ID))

	chats, err := store.ListLiveChats(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, chats)

	interactions, err := store.ListInteractionsForUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, interactions)
}

func TestSoftDeleteChatNotFoundReturnsError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	err := store.SoftDeleteChat(ctx, uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestFilterInteractionsIsCaseSensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	chat, err := store.CreateChat(ctx, userID, "default", "")
	require.NoError(t, err)
	_, err = store.InsertInteraction(ctx, chat.ID, "What is RHEL?", "RHEL is a Linux distribution")
	require.NoError(t, err)

	matches, err := store.FilterInteractionsForUser(ctx, userID, "RHEL")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	noMatches, err := store.FilterInteractionsForUser(ctx, userID, "rhel")
	require.NoError(t, err)
	assert.Empty(t, noMatches)
}

func TestClearInteractionsLeavesChatsIntact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	chat, err := store.CreateChat(ctx, userID, "default", "")
	require.NoError(t, err)
	_, err = store.InsertInteraction(ctx, chat.ID, "hi", "hello")
	require.NoError(t, err)

	require.NoError(t, store.ClearInteractionsForUser(ctx, userID))

	chats, err := store.ListLiveChats(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, chats, 1)

	interactions, err := store.ListInteractionsForUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, interactions)
}
