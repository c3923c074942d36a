package authstate_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/identity/emulator"
	"github.com/dmitrymomot/ency/pkg/identity/toolkit"
	"github.com/dmitrymomot/ency/pkg/profilestore"
)

func TestCore_AgainstEmulator(t *testing.T) {
	t.Parallel()

	emu, err := emulator.New(emulator.Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	srv := httptest.NewServer(emu.Handler())
	t.Cleanup(srv.Close)

	cfg := toolkit.Config{APIKey: "test", Timeout: 5 * time.Second}.ForEmulator(srv.URL)
	client := toolkit.New(cfg)
	t.Cleanup(client.Close)

	store := profilestore.NewMemoryStore()
	c := authstate.New(client, store)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.WaitReady(ctx))
	assert.Equal(t, authstate.PhaseUnauthenticated, c.Phase())

	signedUp, err := c.SignUp(ctx, authstate.SignUpInput{Email: "a@b.com", Password: "secret1", Name: "Ann"})
	require.NoError(t, err)
	assert.NotEmpty(t, signedUp.UID)
	assert.Equal(t, "Ann", signedUp.Name)
	assert.False(t, signedUp.IsVerified)

	_, err = c.SignUp(ctx, authstate.SignUpInput{Email: "a@b.com", Password: "secret1", Name: "Ann"})
	assert.Equal(t, authstate.KindEmailInUse, authstate.KindOf(err))

	require.NoError(t, c.SignOut(ctx))
	require.Eventually(t, func() bool { return !c.User().IsAuthenticated() }, 3*time.Second, 10*time.Millisecond)

	_, err = c.SignIn(ctx, authstate.SignInInput{Email: "a@b.com", Password: "wrong1"})
	assert.Equal(t, authstate.KindWrongPassword, authstate.KindOf(err))

	signedIn, err := c.SignIn(ctx, authstate.SignInInput{Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, signedUp.UID, signedIn.UID)
	require.Eventually(t, func() bool { return c.User().Name == "Ann" }, 3*time.Second, 10*time.Millisecond)

	codes := emu.OOBCodes()
	require.NotEmpty(t, codes)
	body, err := json.Marshal(map[string]string{"oobCode": codes[0].Code})
	require.NoError(t, err)
	resp, err := http.Post(cfg.BaseURL+"/accounts:update?key="+cfg.APIKey, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, c.Reload(ctx))
	require.Eventually(t, func() bool {
		u := c.User()
		return u.IsVerified && u.Name == "Ann"
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, signedUp.UID, c.User().UID)
	assert.Equal(t, authstate.PhaseAuthenticated, c.Phase())
}
