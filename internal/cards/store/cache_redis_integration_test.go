//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardshare/internal/cards/models"
	"cardshare/internal/cards/store"
	"cardshare/pkg/platform/sentinel"
	"cardshare/pkg/testutil/containers"
)

func TestCachedStoreAgainstRedis(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	backend := store.NewInMemoryStore()
	cached := store.NewCachedStore(backend, rc.Client)

	created, err := cached.Create(ctx, &models.Card{
		OwnerID: "u1", Title: "t", Description: "d", Attribute: "a",
		ShareCode: "code-1", ShareLink: "http://localhost:3001/flashcards/share/link-1",
	})
	require.NoError(t, err)

	t.Run("read populates both keys", func(t *testing.T) {
		_, err := cached.FindByID(ctx, created.ID)
		require.NoError(t, err)

		n, err := rc.Client.Exists(ctx, "cardshare:card:id:"+created.ID, "cardshare:card:share:code-1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("update overwrites cached document", func(t *testing.T) {
		title := "X"
		_, err := cached.UpdateByID(ctx, created.ID, models.CardPatch{Title: &title})
		require.NoError(t, err)

		got, err := cached.FindOne(ctx, models.ByShareCode("code-1"))
		require.NoError(t, err)
		assert.Equal(t, "X", got.Title)
	})

	t.Run("delete leaves a tombstone", func(t *testing.T) {
		_, err := cached.DeleteByID(ctx, created.ID)
		require.NoError(t, err)

		_, err = cached.FindByID(ctx, created.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		raw, err := rc.Client.Get(ctx, "cardshare:card:share:code-1").Result()
		require.NoError(t, err)
		assert.Equal(t, "deleted", raw)
	})

	require.NoError(t, rc.FlushAll(ctx))
}
