package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/ency/pkg/authstate"
	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/identity/emulator"
	"github.com/dmitrymomot/ency/pkg/validator"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCLI_SessionAcrossInvocations(t *testing.T) {
	e, err := emulator.New(emulator.Config{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	srv := httptest.NewServer(e.Handler())
	t.Cleanup(srv.Close)

	t.Setenv("IDENTITY_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("PROFILE_STORE", "memory")
	t.Setenv("LOG_LEVEL", "error")

	out, _, err := run(t, "", "whoami", "--emulator", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)

	out, errOut, err := run(t, "secret1\nsecret1\n", "signup", "--emulator", srv.URL, "--email", "a@b.com", "--name", "Ann")
	require.NoError(t, err)
	assert.Contains(t, out, "Ann <a@b.com>")
	assert.Contains(t, out, "verified=false")
	assert.Contains(t, errOut, "Confirm password: ")

	account, ok := e.Account("a@b.com")
	require.True(t, ok)

	out, _, err = run(t, "", "whoami", "--emulator", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "uid="+account.UID)

	_, _, err = run(t, "", "signin", "--emulator", srv.URL, "--email", "a@b.com", "--password", "wrong1")
	assert.Equal(t, "password: Wrong email or password", describeError(err))

	out, _, err = run(t, "", "signout", "--emulator", srv.URL, "--out", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"phase": "unauthenticated"`)

	out, _, err = run(t, "", "whoami", "--emulator", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "not signed in\n", out)
}

func TestDescribeError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "field error",
			err:  &authstate.Error{Kind: authstate.KindEmailInUse, Err: identity.ErrEmailExists},
			want: "email: Account with this email already exists",
		},
		{
			name: "form error",
			err:  &authstate.Error{Kind: authstate.KindFederatedCancelled},
			want: "Sign-in was cancelled.",
		},
		{
			name: "unknown kind",
			err:  &authstate.Error{Kind: authstate.KindStore},
			want: authstate.GenericMessage,
		},
		{
			name: "validation",
			err: &authstate.Error{Kind: authstate.KindValidation, Err: validator.ValidationErrors{
				{Field: "email", Message: "Invalid email"},
				{Field: "name", Message: "Field is required"},
			}},
			want: "email: Invalid email\nname: Field is required",
		},
		{
			name: "plain error",
			err:  assert.AnError,
			want: "error: " + assert.AnError.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, describeError(tt.err))
		})
	}
}

func TestDescribeUser(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "not signed in", describeUser(authstate.User{}))
	assert.Equal(t, "a@b.com uid=u1 verified=true", describeUser(authstate.User{UID: "u1", Email: "a@b.com", IsVerified: true}))
	assert.Equal(t, "Ann <a@b.com> uid=u1 verified=false", describeUser(authstate.User{UID: "u1", Email: "a@b.com", Name: "Ann"}))
}

func TestOpenBackend_Unknown(t *testing.T) {
	t.Parallel()

	_, _, err := openBackend(context.Background(), "sqlite", nil)
	assert.ErrorContains(t, err, "unknown PROFILE_STORE")
}

func TestPrompt_PipedInput(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	_, err = w.WriteString("secret1\r\nsecret2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, isTerm := terminalFd(r)
	assert.False(t, isTerm)
	_, isTerm = terminalFd(strings.NewReader(""))
	assert.False(t, isTerm)

	var errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(r)
	cmd.SetErr(&errOut)

	a := &app{}
	first, err := a.prompt(cmd, "Password: ")
	require.NoError(t, err)
	second, err := a.prompt(cmd, "Confirm password: ")
	require.NoError(t, err)

	assert.Equal(t, "secret1", first)
	assert.Equal(t, "secret2", second)
	assert.Equal(t, "Password: Confirm password: ", errOut.String())

	_, err = a.prompt(cmd, "Password: ")
	assert.Error(t, err)
}
