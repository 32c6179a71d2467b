package prefill

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryCachePutGetClear(t *testing.T) {
	t.Parallel()

	cache := NewMemoryCache(time.Minute)
	ctx := context.Background()

	identity := Identity{ORCID: "0000-0001-2345-6789", Name: "Ada Lovelace", Email: "ada@example.com"}
	require.NoError(t, cache.Put(ctx, "sess-1", identity))

	got, ok, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, identity, got)

	// Unknown session yields no entry, not an error.
	_, ok, err = cache.Get(ctx, "sess-other")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, cache.Clear(ctx, "sess-1"))
	_, ok, err = cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := NewMemoryCache(time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "sess-1", Identity{ORCID: "0000-0001-2345-6789", Name: "Ada"}))

	current = current.Add(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.False(t, ok)
}
