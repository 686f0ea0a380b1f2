package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestNewPostgresWithoutDSNIsDisabledAndQuiet(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.New(core))
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.ErrorIs(t, pg.Ping(context.Background()), ErrPostgresDisabled)
	assert.Zero(t, logs.Len())
}
