package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newMemoryStore(func() time.Time { return now })

	invalidated, err := s.IsTokenInvalidated(ctx, "rid-1")
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, "rid-1", time.Minute))

	invalidated, err = s.IsTokenInvalidated(ctx, "rid-1")
	require.NoError(t, err)
	assert.True(t, invalidated)

	now = now.Add(2 * time.Minute)

	invalidated, err = s.IsTokenInvalidated(ctx, "rid-1")
	require.NoError(t, err)
	assert.False(t, invalidated, "records lapse with the token they shadow")

	require.NoError(t, s.InvalidateToken(ctx, "rid-2", time.Minute))
	assert.NotContains(t, s.invalidated, "rid-1")
	assert.Contains(t, s.invalidated, "rid-2")

	assert.NoError(t, s.Ping(ctx))
}
