package storagetest

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Put(ctx, "1-a.jpg", []byte("jpeg"), "image/jpeg"))
	assert.ErrorIs(t, m.Put(ctx, "1-a.jpg", []byte("other"), "image/jpeg"), storage.ErrObjectExists)
	assert.ErrorIs(t, m.Put(ctx, "../x.jpg", []byte("x"), "image/jpeg"), storage.ErrInvalidKey)

	data, ct, err := m.Get(ctx, "1-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "1-a.jpg"))
	ok, err := m.Exists(ctx, "1-a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = m.Get(ctx, "1-a.jpg")
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestMemory_InjectedFailures(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.PutErr = errors.New("bucket unavailable")
	assert.EqualError(t, m.Put(ctx, "1-a.jpg", []byte("x"), "image/jpeg"), "bucket unavailable")
	assert.Equal(t, 0, m.Len())

	m.PutErr = nil
	require.NoError(t, m.Put(ctx, "1-a.jpg", []byte("x"), "image/jpeg"))
	m.DeleteErr = errors.New("delete denied")
	assert.EqualError(t, m.Delete(ctx, "1-a.jpg"), "delete denied")
	assert.Equal(t, 1, m.Len())
}
