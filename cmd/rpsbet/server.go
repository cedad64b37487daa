package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/rpsbet/cmd/rpsbet/shared"
	"github.com/lox/rpsbet/internal/roundlog"
	"github.com/lox/rpsbet/internal/server"
)

// ServerCmd runs the escrow host. Flags override the config file.
type ServerCmd struct {
	Config     string  `kong:"default='rpsbet.hcl',help='Path to HCL config file'"`
	Addr       string  `kong:"help='Server address (overrides config)'"`
	Debug      bool    `kong:"help='Enable debug logging'"`
	Bet        *int64  `kong:"help='Required stake per player (overrides config)'"`
	Faucet     *int64  `kong:"help='Balance credited on join (overrides config)'"`
	AdminToken *string `kong:"help='Token gating lock/unlock/abort (overrides config)'"`
	HistoryDir *string `kong:"help='Directory for the round log (overrides config)'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	if c.Bet != nil {
		cfg.Game.Bet = *c.Bet
	}
	if c.Faucet != nil {
		cfg.Game.Faucet = *c.Faucet
	}
	if c.AdminToken != nil {
		cfg.Game.AdminToken = *c.AdminToken
	}
	if c.HistoryDir != nil {
		cfg.History = &server.HistorySettings{Dir: *c.HistoryDir, FlushIntervalSeconds: 10, FlushRounds: 50}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !c.Debug {
		logger = logger.Level(shared.ParseLevel(cfg.Server.LogLevel))
	}

	var rounds *roundlog.Monitor
	if cfg.History != nil {
		rounds, err = roundlog.NewMonitor(logger, roundlog.Config{
			Dir:           cfg.History.Dir,
			FlushInterval: cfg.History.FlushInterval(),
			FlushRounds:   cfg.History.FlushRounds,
			Clock:         quartz.NewReal(),
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := rounds.Close(); err != nil {
				logger.Error().Err(err).Msg("closing round log")
			}
		}()
	}

	service, err := server.NewService(logger, cfg.Game, rounds)
	if err != nil {
		return err
	}
	if rounds != nil {
		rounds.SetSnapshot(service.Ledger().Snapshot)
	}

	s := server.NewServer(logger, service)

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Int64("bet", cfg.Game.Bet).
		Int64("faucet", cfg.Game.Faucet).
		Bool("admin_enabled", cfg.Game.AdminToken != "").
		Bool("history_enabled", cfg.History != nil).
		Msg("starting rpsbet server")

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := s.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
