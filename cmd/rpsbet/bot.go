package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	rand "math/rand/v2"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/rpsbet/cmd/rpsbet/shared"
	"github.com/lox/rpsbet/internal/client"
	"github.com/lox/rpsbet/internal/protocol"
	"github.com/lox/rpsbet/internal/randutil"
)

// BotCmd runs automated players that commit random choices and settle
// rounds as fast as the server lets them.
type BotCmd struct {
	Server string `kong:"default='ws://localhost:8080/ws',help='Server URL'"`
	Name   string `kong:"default='bot',help='Base name for bot identities'"`
	Count  int    `kong:"default='2',help='Number of bots to run'"`
	Rounds int    `kong:"default='10',help='Rounds to play before exiting (0 = forever)'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed (optional)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *BotCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info().Int64("seed", seed).Int("count", c.Count).Msg("starting bots")

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Count; i++ {
		bot := &bot{
			name:   fmt.Sprintf("%s-%d", c.Name, i+1),
			server: c.Server,
			rounds: c.Rounds,
			rng:    randutil.New(seed + int64(i)),
			logger: logger.With().Str("bot", fmt.Sprintf("%s-%d", c.Name, i+1)).Logger(),
		}
		g.Go(func() error { return bot.run(ctx) })
	}
	return g.Wait()
}

type bot struct {
	name   string
	server string
	rounds int
	rng    *rand.Rand
	logger zerolog.Logger

	mu       sync.Mutex
	bet      int64
	played   int
	finished bool
	done     chan struct{}
}

var botChoices = []string{"rock", "paper", "scissors"}

func (b *bot) run(ctx context.Context) error {
	b.done = make(chan struct{})
	c := client.New(b.server, b.logger)

	c.On(protocol.TypeJoined, func(msg *protocol.Message) {
		var joined protocol.JoinedData
		if err := msg.DecodeData(&joined); err != nil {
			b.logger.Error().Err(err).Msg("decode joined")
			return
		}
		b.mu.Lock()
		b.bet = joined.State.Bet
		b.mu.Unlock()
		b.logger.Info().Str("address", joined.Address).Int64("balance", joined.Balance).Msg("joined")
		b.commit(c)
	})

	c.On(protocol.TypePlayerCommitted, func(msg *protocol.Message) {
		var committed protocol.PlayerCommittedData
		if err := msg.DecodeData(&committed); err != nil {
			return
		}
		// Whoever sees the round fill tries to settle it; the loser of
		// that race just gets a round_not_ready error.
		if committed.Stage == 2 {
			_ = c.Distribute()
		}
	})

	c.On(protocol.TypeRoundResult, func(msg *protocol.Message) {
		var result protocol.RoundResultData
		if err := msg.DecodeData(&result); err != nil {
			return
		}
		b.logger.Info().
			Str("round", result.RoundID).
			Str("winner", result.WinnerAddress).
			Int64("payout", result.Payout).
			Msg("round settled")

		if b.finishRound() {
			close(b.done)
			return
		}
		b.commit(c)
	})

	c.On(protocol.TypeRoundDraw, func(msg *protocol.Message) {
		// Nothing a bot can do about a draw; an admin has to abort.
		b.logger.Debug().Msg("round drawn, waiting for abort")
	})

	c.On(protocol.TypeRoundAborted, func(msg *protocol.Message) {
		// Stakes came back as pending credit; pull them and keep playing.
		_ = c.Withdraw()
		b.commit(c)
	})

	c.On(protocol.TypeError, func(msg *protocol.Message) {
		var e protocol.ErrorData
		if err := msg.DecodeData(&e); err != nil {
			return
		}
		switch e.Code {
		case protocol.CodeRoundNotReady, protocol.CodeRoundFull, protocol.CodeDraw, protocol.CodeNoBalance:
			b.logger.Debug().Str("code", e.Code).Msg(e.Message)
		default:
			b.logger.Warn().Str("code", e.Code).Msg(e.Message)
		}
	})

	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Close()

	if err := c.Join(b.name); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-c.Done():
		return fmt.Errorf("bot %s: connection lost", b.name)
	case <-b.done:
		b.logger.Info().Int("rounds", b.rounds).Msg("finished")
		return nil
	}
}

// finishRound counts a settled round and reports whether the bot just hit
// its round limit. Results are broadcast to every connection, so this can
// fire again after the limit is reached; it returns true exactly once, which
// keeps the close of b.done single-shot.
func (b *bot) finishRound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.played++
	if b.finished || b.rounds <= 0 || b.played < b.rounds {
		return false
	}
	b.finished = true
	return true
}

func (b *bot) commit(c *client.Client) {
	b.mu.Lock()
	choice := randutil.Pick(b.rng, botChoices)
	bet := b.bet
	b.mu.Unlock()
	if err := c.Commit(choice, bet); err != nil {
		b.logger.Error().Err(err).Msg("commit failed")
	}
}
