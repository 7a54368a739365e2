package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
	assert.Equal(t, 0.0005, cfg.Fees.MakerRate)
	assert.Equal(t, 0.001, cfg.Fees.TakerRate)
	assert.Equal(t, int32(2), cfg.Book.PricePrecision)
	assert.Equal(t, 10, cfg.Book.DepthLevels)
	assert.Equal(t, 1000, cfg.Trades.RecentCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.Stop.MonitorInterval)
	assert.Equal(t, "orderbook_data", cfg.Store.DataDir)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: ":9100"
fees:
  maker_rate: 0.001
  taker_rate: 0.002
stop:
  monitor_interval: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9100", cfg.Server.ListenAddr)
	assert.Equal(t, 0.001, cfg.Fees.MakerRate)
	assert.Equal(t, 0.002, cfg.Fees.TakerRate)
	assert.Equal(t, 250*time.Millisecond, cfg.Stop.MonitorInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 10, cfg.Book.DepthLevels)
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.ListenAddr)
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Book.DepthLevels = 0
	assert.Error(t, cfg.Validate())

	cfg, _ = Load("")
	cfg.Fees.TakerRate = -0.001
	assert.Error(t, cfg.Validate())

	cfg, _ = Load("")
	cfg.Stop.MonitorInterval = 0
	assert.Error(t, cfg.Validate())
}
