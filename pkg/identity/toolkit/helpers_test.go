package toolkit_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/identity/toolkit"
)

// confirmEmail plays the user clicking the verification link.
func confirmEmail(t *testing.T, cfg toolkit.Config, code string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"oobCode": code})
	require.NoError(t, err)

	resp, err := http.Post(cfg.BaseURL+"/accounts:update?key="+cfg.APIKey, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
