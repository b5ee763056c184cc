package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	users map[uint32]uuid.UUID
	err   error
}

func (s stubSessions) GetUserID(_ context.Context, osUID uint32) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.UUID{}, s.err
	}
	return s.users[osUID], nil
}

func TestVerifyUnixAllowsMatchingUID(t *testing.T) {
	a := New(stubSessions{}, nil)
	assert.NoError(t, a.VerifyUnix(1000, 1000))
}

func TestVerifyUnixDeniesMismatchedUID(t *testing.T) {
	var denied bool
	a := New(stubSessions{}, func(senderUID uint32, requested string) { denied = true })
	err := a.VerifyUnix(1000, 1001)
	require.Error(t, err)
	assert.True(t, denied)
}

func TestVerifyInternalAllowsMatchingIdentity(t *testing.T) {
	userID := uuid.New()
	a := New(stubSessions{users: map[uint32]uuid.UUID{1000: userID}}, nil)
	assert.NoError(t, a.VerifyInternal(context.Background(), 1000, userID.String()))
}

func TestVerifyInternalDeniesMismatchedIdentity(t *testing.T) {
	userID := uuid.New()
	other := uuid.New()
	var denied bool
	a := New(stubSessions{users: map[uint32]uuid.UUID{1000: userID}}, func(uint32, string) { denied = true })
	err := a.VerifyInternal(context.Background(), 1000, other.String())
	require.Error(t, err)
	assert.True(t, denied)
}

func TestVerifyInternalFailsClosedOnLookupError(t *testing.T) {
	a := New(stubSessions{err: assertError{}}, nil)
	err := a.VerifyInternal(context.Background(), 1000, uuid.New().String())
	require.Error(t, err)
}

type assertError struct{}

func (assertError) Error() string { return "lookup failed" }
