package toolkit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileSessionStore(path)

	s, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	want := &Session{
		UID:          "u1",
		Email:        "a@x.io",
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresAt:    time.Unix(1_700_000_000, 0).UTC(),
	}
	require.NoError(t, store.Save(ctx, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	s, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFileSessionStore_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))

	_, err := NewFileSessionStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFileSessionStore_Passphrase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileSessionStore(path, WithPassphrase("hunter2"))

	want := &Session{UID: "u1", Email: "a@x.io", IDToken: "id", RefreshToken: "refresh-secret"}
	require.NoError(t, store.Save(ctx, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "refresh-secret")

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := NewFileSessionStore(path, WithPassphrase("other")).Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, other, "a session sealed under another passphrase is ignored")

	plain, err := NewFileSessionStore(path).Load(ctx)
	assert.Error(t, err, "sealed bytes are not JSON")
	assert.Nil(t, plain)

	_, err = NewFileSessionStore(path, WithPassphrase("")).Load(ctx)
	assert.Error(t, err)
}

func TestMemorySessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemorySessionStore()

	in := &Session{UID: "u1", RefreshToken: "r"}
	require.NoError(t, store.Save(ctx, in))
	in.UID = "mutated"

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)

	t.Run("exp claim wins", func(t *testing.T) {
		t.Parallel()
		exp := now.Add(10 * time.Minute)
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		}).SignedString([]byte("k"))
		require.NoError(t, err)

		assert.True(t, tokenExpiry(tok, "3600", now).Equal(exp))
	})

	t.Run("falls back to expiresIn", func(t *testing.T) {
		t.Parallel()
		assert.True(t, tokenExpiry("opaque", "120", now).Equal(now.Add(2*time.Minute)))
	})

	t.Run("expired applies skew", func(t *testing.T) {
		t.Parallel()
		s := &Session{ExpiresAt: now.Add(10 * time.Second)}
		assert.True(t, s.expired(now))
		s.ExpiresAt = now.Add(time.Minute)
		assert.False(t, s.expired(now))
	})
}
