// Package session maps OS user ids to the stable internal identity used
// everywhere else in the daemon, caching the mapping so the bus's
// per-request overhead stays low.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/storage"
)

// Service resolves OS uids to internal user ids, consulting the cache
// before falling back to storage.
type Service struct {
	store *storage.Store
	cache Cache
}

func NewService(store *storage.Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// GetUserID returns the internal identity for an OS uid, creating the user
// row the first time it is seen and populating the cache either way.
func (s *Service) GetUserID(ctx context.Context, osUID uint32) (uuid.UUID, error) {
	if cached, ok := s.cache.Get(ctx, osUID); ok {
		if id, err := uuid.Parse(cached); err == nil {
			return id, nil
		}
	}

	user, err := s.store.GetOrCreateUser(ctx, osUID)
	if err != nil {
		return uuid.UUID{}, err
	}

	s.cache.Set(ctx, osUID, user.ID.String())
	return user.ID, nil
}
