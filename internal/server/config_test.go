package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rpsbet.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server {
  addr      = ":9000"
  log_level = "debug"
}

game {
  bet         = 250
  faucet      = 5000
  admin_token = "hunter2"
}

history {
  dir                    = "out/rounds"
  flush_interval_seconds = 5
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.EqualValues(t, 250, cfg.Game.Bet)
	assert.EqualValues(t, 5000, cfg.Game.Faucet)
	assert.Equal(t, "hunter2", cfg.Game.AdminToken)
	assert.Equal(t, "escrow", cfg.Game.EscrowAccount, "default applied")

	require.NotNil(t, cfg.History)
	assert.Equal(t, "out/rounds", cfg.History.Dir)
	assert.Equal(t, 5*time.Second, cfg.History.FlushInterval())
	assert.Equal(t, 50, cfg.History.FlushRounds, "default applied")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.EqualValues(t, 100, cfg.Game.Bet)
	assert.Nil(t, cfg.History)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(writeConfig(t, `server {`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", *DefaultConfig(), true},
		{"zero bet", Config{Game: GameSettings{Bet: 0, Faucet: 0}}, true},
		{"negative bet", Config{Game: GameSettings{Bet: -1}}, false},
		{"negative faucet", Config{Game: GameSettings{Bet: 0, Faucet: -1}}, false},
		{"faucet below bet", Config{Game: GameSettings{Bet: 100, Faucet: 50}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
