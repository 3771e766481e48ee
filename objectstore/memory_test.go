package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	err := s.Put(ctx, "a/b.txt", strings.NewReader("payload"), 7, "text/plain")
	require.NoError(t, err)

	r, err := s.Get(ctx, "a/b.txt")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	url, err := s.PresignedGetURL(ctx, "a/b.txt", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "memory://a/b.txt", url)
}

func TestMemoryStoreMissingKey(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.Error(t, err)

	_, err = s.PresignedGetURL(ctx, "nope", time.Minute)
	assert.Error(t, err)
}

func TestObjectKeyPreservesExtension(t *testing.T) {
	key := ObjectKey("report.pdf")
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, ObjectKey("report.pdf"))
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k", strings.NewReader("x"), 1, ""))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Get(ctx, "k")
	assert.Error(t, err)

	// Deleting a missing key is not an error.
	assert.NoError(t, s.Delete(ctx, "k"))
}
