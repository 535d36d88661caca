package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/ruleflow/service/dao"
)

type item struct {
	ID    string
	Value int
}

func newItemStore() *MemoryStore[string, item] {
	return NewMemoryStore[string, item](func(i *item) string { return i.ID }, func(i *item) *item {
		clone := *i
		return &clone
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newItemStore()
	assert.ErrorIs(t, store.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, store.Save(ctx, &item{}), dao.ErrInvalidID)

	original := &item{ID: "a", Value: 1}
	require.NoError(t, store.Save(ctx, original))
	original.Value = 100

	loaded, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Value)
	loaded.Value = 200

	updated, err := store.Update(ctx, "a", func(i *item) error {
		i.Value++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Value)

	_, err = store.Update(ctx, "a", func(i *item) error {
		i.Value = 99
		return errors.New("rejected")
	})
	assert.Error(t, err)
	loaded, _ = store.Load(ctx, "a")
	assert.Equal(t, 2, loaded.Value)

	items, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "a"), dao.ErrNotFound)
	_, err = store.Update(ctx, "a", func(*item) error { return nil })
	assert.ErrorIs(t, err, dao.ErrNotFound)
}
