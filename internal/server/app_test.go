package server

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/clinicsync/internal/logging"
	"github.com/dmitrijs2005/clinicsync/internal/server/config"
	"github.com/dmitrijs2005/clinicsync/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_MemoryStore(t *testing.T) {
	var c config.Config
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"

	app, err := NewApp(context.Background(), &c, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, app.store)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, app.Run(ctx))
}

func TestNewLogger(t *testing.T) {
	var c config.Config
	c.LoadDefaults()

	l, err := NewLogger(&c)
	require.NoError(t, err)
	assert.IsType(t, &logging.ZapLogger{}, l)

	c.LogBackend = "slog"
	l, err = NewLogger(&c)
	require.NoError(t, err)
	assert.IsType(t, &logging.SlogLogger{}, l)

	c.LogBackend = "zap"
	c.LogLevel = "loud"
	_, err = NewLogger(&c)
	require.Error(t, err)
}
