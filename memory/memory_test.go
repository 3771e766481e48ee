package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreAddAndList(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	first, err := s.Add(ctx, 1, "likes tea")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.Add(ctx, 1, "works remotely")
	require.NoError(t, err)
	_, err = s.Add(ctx, 2, "other user")
	require.NoError(t, err)

	entries, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "likes tea", entries[0].Content)
	assert.Equal(t, "works remotely", entries[1].Content)
}

func TestInMemoryStoreClear(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "fact")
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, 1))

	entries, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInMemoryStoreIsolatedSnapshots(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	_, err := s.Add(ctx, 1, "fact")
	require.NoError(t, err)

	entries, err := s.List(ctx, 1)
	require.NoError(t, err)
	entries[0].Content = "mutated"

	again, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "fact", again[0].Content)
}
