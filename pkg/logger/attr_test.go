package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestUID(t *testing.T) {
	t.Parallel()

	attr := logger.UID("abc")
	assert.Equal(t, "uid", attr.Key)
	assert.Equal(t, "abc", attr.Value.String())

	assert.True(t, logger.UID("").Equal(slog.Attr{}))
}

func TestDuration(t *testing.T) {
	t.Parallel()

	attr := logger.Duration(1500 * time.Millisecond)
	assert.Equal(t, "duration_ms", attr.Key)
	assert.Equal(t, int64(1500), attr.Value.Int64())
}

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("session", logger.Op("sign_in"), logger.Kind("wrong_password"))
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "op", g[0].Key)
	assert.Equal(t, "error_kind", g[1].Key)
}
