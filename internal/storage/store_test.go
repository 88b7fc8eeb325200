package storage

import (
	"context"
	"testing"

	"github.com/prefeitura-rio/app-identidade/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(nickname string) *models.DocumentRecord {
	return &models.DocumentRecord{
		Nickname: nickname,
		DocumentFields: models.DocumentFields{
			IDNumber:    "12.345.678-9",
			BirthDate:   "01/01/1990",
			CarryPermit: "Sim",
			License:     "AB",
		},
		Photo:         []byte("photo-bytes"),
		Serial:        "123-456-789",
		IssuedOn:      "19/10/2026",
		RenderedImage: []byte("png-bytes"),
	}
}

// runStoreContract exercises the behavior every Store driver must share
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("missing document", func(t *testing.T) {
		store := newStore(t)

		_, err := store.GetDocument(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = store.GetRenderedImage(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("upsert then get", func(t *testing.T) {
		store := newStore(t)
		record := sampleRecord("alice")

		require.NoError(t, store.UpsertDocument(ctx, record))

		got, err := store.GetDocument(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, record.Nickname, got.Nickname)
		assert.Equal(t, record.DocumentFields, got.DocumentFields)
		assert.Equal(t, record.Photo, got.Photo)
		assert.Equal(t, record.Serial, got.Serial)
		assert.Equal(t, record.IssuedOn, got.IssuedOn)
		assert.Equal(t, record.RenderedImage, got.RenderedImage)

		image, err := store.GetRenderedImage(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), image)
	})

	t.Run("upsert replaces the whole record", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertDocument(ctx, sampleRecord("bob")))

		replacement := sampleRecord("bob")
		replacement.License = "D"
		replacement.Serial = "999-888-777"
		replacement.RenderedImage = []byte("new-png")
		require.NoError(t, store.UpsertDocument(ctx, replacement))

		got, err := store.GetDocument(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "D", got.License)
		assert.Equal(t, "999-888-777", got.Serial)
		assert.Equal(t, []byte("new-png"), got.RenderedImage)
	})

	t.Run("nicknames are independent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.UpsertDocument(ctx, sampleRecord("carol")))

		other := sampleRecord("dave")
		other.RenderedImage = []byte("dave-png")
		require.NoError(t, store.UpsertDocument(ctx, other))

		image, err := store.GetRenderedImage(ctx, "carol")
		require.NoError(t, err)
		assert.Equal(t, []byte("png-bytes"), image)
	})

	t.Run("guild role", func(t *testing.T) {
		store := newStore(t)

		_, err := store.GetGuildRole(ctx, "g1")
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, store.SetGuildRole(ctx, "g1", "role-a"))
		role, err := store.GetGuildRole(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "role-a", role)

		require.NoError(t, store.SetGuildRole(ctx, "g1", "role-b"))
		role, err = store.GetGuildRole(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "role-b", role)

		_, err = store.GetGuildRole(ctx, "g2")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
