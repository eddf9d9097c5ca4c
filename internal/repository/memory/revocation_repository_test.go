package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRevocationRepository()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-1", time.Hour))
	revoked, _ = repo.IsRevoked(ctx, "jti-1")
	assert.True(t, revoked)

	require.NoError(t, repo.Revoke(ctx, "jti-2", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	revoked, _ = repo.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked, "entry expires with the token")

	require.NoError(t, repo.Revoke(ctx, "jti-3", 0))
	revoked, _ = repo.IsRevoked(ctx, "jti-3")
	assert.False(t, revoked, "already expired tokens need no entry")
}
