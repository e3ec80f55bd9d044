package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5555", cfg.ListenAddr)
	assert.Equal(t, ":5557", cfg.AdminAddr)
	assert.Equal(t, 5556, cfg.DiscoveryPort)
	assert.Equal(t, 2, cfg.NumPlayers)
	assert.Equal(t, 30*time.Second, cfg.HideDelay)
	assert.Equal(t, 45*time.Second, cfg.CatchWindow)
	assert.Equal(t, 250*time.Millisecond, cfg.PollEvery)
	assert.Equal(t, 5*time.Second, cfg.EndGrace)
	assert.Equal(t, RestartReset, cfg.Restart)
}

func TestLoadPortDerivedAddresses(t *testing.T) {
	t.Setenv("HIDESEEK_PORT", "7000")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, 7001, cfg.DiscoveryPort)
	assert.Equal(t, ":7002", cfg.AdminAddr)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HIDESEEK_ADDR", "127.0.0.1:9999")
	t.Setenv("HIDESEEK_PLAYERS", "4")
	t.Setenv("HIDESEEK_HIDE_DELAY", "10s")
	t.Setenv("HIDESEEK_RESTART", "exit")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.NumPlayers)
	assert.Equal(t, 10*time.Second, cfg.HideDelay)
	assert.Equal(t, RestartExit, cfg.Restart)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("HIDESEEK_PLAYERS", "1")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownRestartMode(t *testing.T) {
	t.Setenv("HIDESEEK_RESTART", "reboot")
	_, err := Load()
	assert.Error(t, err)
}
