package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server  ServerSettings   `hcl:"server,block"`
	Game    GameSettings     `hcl:"game,block"`
	History *HistorySettings `hcl:"history,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Addr     string `hcl:"addr,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings configures the escrow game itself.
type GameSettings struct {
	// Bet is the required stake per player. Zero is legal and degenerates
	// the game to no stakes.
	Bet int64 `hcl:"bet"`
	// Faucet is the balance credited to every player on join.
	Faucet int64 `hcl:"faucet,optional"`
	// AdminToken gates lock, unlock and abort. Empty disables the whole
	// administrative surface.
	AdminToken string `hcl:"admin_token,optional"`
	// EscrowAccount is the ledger address the game holds funds under.
	EscrowAccount string `hcl:"escrow_account,optional"`
}

// HistorySettings configures the on-disk round log.
type HistorySettings struct {
	Dir                  string `hcl:"dir,optional"`
	FlushIntervalSeconds int    `hcl:"flush_interval_seconds,optional"`
	FlushRounds          int    `hcl:"flush_rounds,optional"`
}

// FlushInterval returns the configured interval as a duration.
func (h *HistorySettings) FlushInterval() time.Duration {
	return time.Duration(h.FlushIntervalSeconds) * time.Second
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Addr:     ":8080",
			LogLevel: "info",
		},
		Game: GameSettings{
			Bet:           100,
			Faucet:        1000,
			EscrowAccount: "escrow",
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Game.EscrowAccount == "" {
		config.Game.EscrowAccount = "escrow"
	}
	if config.History != nil {
		if config.History.Dir == "" {
			config.History.Dir = "rounds"
		}
		if config.History.FlushIntervalSeconds == 0 {
			config.History.FlushIntervalSeconds = 10
		}
		if config.History.FlushRounds == 0 {
			config.History.FlushRounds = 50
		}
	}

	return &config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Game.Bet < 0 {
		return fmt.Errorf("game bet must not be negative, got %d", c.Game.Bet)
	}
	if c.Game.Faucet < 0 {
		return fmt.Errorf("game faucet must not be negative, got %d", c.Game.Faucet)
	}
	if c.Game.Faucet < c.Game.Bet {
		return fmt.Errorf("game faucet (%d) must cover at least one bet (%d)", c.Game.Faucet, c.Game.Bet)
	}
	if c.History != nil && c.History.FlushIntervalSeconds < 0 {
		return fmt.Errorf("history flush interval must not be negative")
	}
	return nil
}
