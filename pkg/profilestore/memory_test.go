package profilestore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/profilestore"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing profile", func(t *testing.T) {
		t.Parallel()
		s := profilestore.NewMemoryStore()

		p, err := s.Get(ctx, "u1")
		assert.ErrorIs(t, err, profilestore.ErrNotFound)
		assert.Nil(t, p)
	})

	t.Run("set then get", func(t *testing.T) {
		t.Parallel()
		s := profilestore.NewMemoryStore()

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Email: "a@x.io", Name: "Ann"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, profilestore.Profile{UID: "u1", Email: "a@x.io", Name: "Ann"}, *p)
	})

	t.Run("set replaces whole document", func(t *testing.T) {
		t.Parallel()
		s := profilestore.NewMemoryStore()

		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Email: "a@x.io", Name: "Ann"}))
		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Email: "b@x.io"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "b@x.io", p.Email)
		assert.Empty(t, p.Name)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("returned profile is a copy", func(t *testing.T) {
		t.Parallel()
		s := profilestore.NewMemoryStore()
		require.NoError(t, s.Set(ctx, "u1", profilestore.Profile{Name: "Ann"}))

		p, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		p.Name = "changed"

		again, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Ann", again.Name)
	})

	t.Run("empty uid", func(t *testing.T) {
		t.Parallel()
		s := profilestore.NewMemoryStore()

		_, err := s.Get(ctx, "")
		assert.ErrorIs(t, err, profilestore.ErrEmptyUID)
		assert.ErrorIs(t, s.Set(ctx, "", profilestore.Profile{}), profilestore.ErrEmptyUID)
	})
}
