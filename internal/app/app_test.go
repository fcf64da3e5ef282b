package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drat/internal/app"
	"drat/internal/relay"
	"drat/internal/session"
	"drat/internal/transport"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, ":8080", cfg.RelayAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.RelayURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, uint64(100), cfg.MaxSkip)
	assert.Equal(t, 4, cfg.MaxSkippedChains)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("DRAT_LOG_LEVEL", "debug")
	t.Setenv("DRAT_RELAY_URL", "http://127.0.0.1:8080")
	t.Setenv("DRAT_MAX_SKIP", "250")
	t.Setenv("DRAT_MAX_SKIPPED_CHAINS", "0")
	t.Setenv("DRAT_HTTP_TIMEOUT", "3s")

	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.RelayURL)
	assert.Equal(t, uint64(250), cfg.MaxSkip)
	assert.Zero(t, cfg.MaxSkippedChains)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("DRAT_MAX_SKIP", "0")
	_, err := app.LoadConfig()
	require.Error(t, err)

	t.Setenv("DRAT_MAX_SKIP", "lots")
	_, err = app.LoadConfig()
	require.Error(t, err)
}

func TestNewWire_SelectsTransport(t *testing.T) {
	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	cfg.LogLevel = "disabled"

	a, err := app.NewWire(cfg)
	require.NoError(t, err)
	assert.IsType(t, &transport.Memory{}, a.Relay)

	cfg.RelayURL = "http://relay.invalid"
	a, err = app.NewWire(cfg)
	require.NoError(t, err)
	assert.IsType(t, &relay.HTTPClient{}, a.Relay)
	assert.Equal(t, cfg.HTTPTimeout, a.HTTP.Timeout)
}

func TestApp_NewPairExchange(t *testing.T) {
	cfg, err := app.LoadConfig()
	require.NoError(t, err)
	a := app.New(cfg, zerolog.New(zerolog.NewTestWriter(t)), transport.NewMemory(), nil)

	alice, bob, err := a.NewPair("alice", "bob")
	require.NoError(t, err)
	defer alice.Close()
	defer bob.Close()

	var got int
	err = session.Exchange(context.Background(), a.Relay, alice, bob, session.DefaultScript, []byte("Empty AD"),
		func(d session.Delivery) {
			if d.Received {
				got++
			}
		})
	require.NoError(t, err)
	assert.Equal(t, len(session.DefaultScript), got)
}

func TestNewMailbox(t *testing.T) {
	ctx := context.Background()
	log := zerolog.New(zerolog.NewTestWriter(t))
	cfg, err := app.LoadConfig()
	require.NoError(t, err)

	mb, closeFn, err := app.NewMailbox(ctx, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &relay.MemoryMailbox{}, mb)
	require.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	mb, closeFn, err = app.NewMailbox(ctx, cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &relay.RedisMailbox{}, mb)
	require.NoError(t, closeFn())

	mr.Close()
	_, _, err = app.NewMailbox(ctx, cfg, log)
	require.Error(t, err)
}
