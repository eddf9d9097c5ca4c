package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// RevocationRepository remembers revoked session token ids until the token
// would have expired anyway.
type RevocationRepository struct {
	cache *cache.Cache
}

func NewRevocationRepository() *RevocationRepository {
	// Entries carry their own TTL; purge expired ones every 10 minutes.
	c := cache.New(24*time.Hour, 10*time.Minute)
	return &RevocationRepository{
		cache: c,
	}
}

func (r *RevocationRepository) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	r.cache.Set(tokenID, struct{}{}, ttl)
	return nil
}

func (r *RevocationRepository) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, found := r.cache.Get(tokenID)
	return found, nil
}
