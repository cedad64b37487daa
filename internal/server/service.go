package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/game"
	"github.com/lox/rpsbet/internal/ledger"
	"github.com/lox/rpsbet/internal/protocol"
	"github.com/lox/rpsbet/internal/roundid"
	"github.com/lox/rpsbet/internal/roundlog"
)

// Service is the host execution environment around the game state: it owns
// the ledger, attaches value to calls, serializes every call end to end and
// maps round events onto the wire. One mutex covers each call including its
// nested transfers, so the game never observes concurrency.
type Service struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	cfg     GameSettings
	ledger  *ledger.Ledger
	escrow  *ledger.Escrow
	state   *game.State
	rounds  *roundlog.Monitor
	roundID string
	joined  map[string]bool

	broadcast func(*protocol.Message)
}

// NewService builds the ledger, escrow and game state from the settings.
// The rounds monitor is optional.
func NewService(logger zerolog.Logger, cfg GameSettings, rounds *roundlog.Monitor) (*Service, error) {
	if cfg.EscrowAccount == "" {
		cfg.EscrowAccount = "escrow"
	}

	l := ledger.New()
	escrow := ledger.NewEscrow(l, cfg.EscrowAccount)
	state := game.NewState(escrow)
	if err := state.Configure(cfg.Bet); err != nil {
		return nil, fmt.Errorf("configure game: %w", err)
	}

	s := &Service{
		logger: logger.With().Str("component", "service").Logger(),
		cfg:    cfg,
		ledger: l,
		escrow: escrow,
		state:  state,
		rounds: rounds,
		joined: make(map[string]bool),
	}
	state.SetEventSink(s.handleEvent)
	return s, nil
}

// SetBroadcast installs the fan-out used for round events.
func (s *Service) SetBroadcast(fn func(*protocol.Message)) {
	s.broadcast = fn
}

// Ledger exposes the balance table, read-only by convention.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Join registers a player, credits the faucet balance and returns the
// assigned address with a state snapshot. Taken names get a short suffix.
func (s *Service) Join(name string) (*protocol.JoinedData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := name
	if base == "" {
		base = "player-" + uuid.NewString()[:8]
	}
	addr := base
	for s.joined[addr] {
		addr = base + "-" + uuid.NewString()[:4]
	}
	s.joined[addr] = true

	if err := s.ledger.Deposit(addr, s.cfg.Faucet); err != nil {
		return nil, err
	}
	s.logger.Info().Str("address", addr).Int64("faucet", s.cfg.Faucet).Msg("player joined")

	return &protocol.JoinedData{
		Address: addr,
		Balance: s.ledger.Balance(addr),
		State:   s.snapshotLocked(),
	}, nil
}

// Commit executes a value-bearing commit call: the attached value moves into
// escrow first, and moves back out in full if the game rejects the call.
func (s *Service) Commit(caller, choiceName string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joined[caller] {
		return ErrNotJoined
	}
	choice, err := game.ParseChoiceName(choiceName)
	if err != nil {
		return err
	}

	if s.state.Stage() == game.StageFirstCommit {
		s.roundID = roundid.MustNew()
	}

	if err := s.escrow.AttachValue(caller, value); err != nil {
		return err
	}
	if err := s.state.Commit(caller, choice, value); err != nil {
		if rerr := s.escrow.ReturnValue(caller, value); rerr != nil {
			// Funds were just attached, so this cannot be a shortfall.
			s.logger.Error().Err(rerr).Str("caller", caller).Msg("returning attached value failed")
		}
		return err
	}
	return nil
}

// Distribute settles a full round. Anyone who has joined may trigger it.
func (s *Service) Distribute(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joined[caller] {
		return ErrNotJoined
	}
	return s.state.Distribute()
}

// Withdraw pulls the caller's pending credit out of escrow.
func (s *Service) Withdraw(caller string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.joined[caller] {
		return 0, ErrNotJoined
	}
	return s.state.Withdraw(caller)
}

// Lock pauses commits. Admin only.
func (s *Service) Lock(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(token); err != nil {
		return err
	}
	s.state.Lock()
	return nil
}

// Unlock re-enables commits. Admin only.
func (s *Service) Unlock(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(token); err != nil {
		return err
	}
	s.state.Unlock()
	return nil
}

// Abort resets the current round, crediting stakes back as withdrawable
// balances. This is the escape hatch for a round stuck on a draw. Admin only.
func (s *Service) Abort(token string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.authorize(token); err != nil {
		return nil, err
	}

	players := s.slotRecords()
	refunds := s.state.Abort()
	if len(refunds) > 0 && s.rounds != nil {
		s.rounds.Record(roundlog.Record{
			RoundID: s.roundID,
			Bet:     s.state.Bet(),
			Outcome: roundlog.OutcomeAborted,
			Players: players,
			Refunds: refunds,
		})
	}
	return refunds, nil
}

// Snapshot returns the public view of the game.
func (s *Service) Snapshot() protocol.StateData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Balance reports an address's ledger balance and pending credit.
func (s *Service) Balance(addr string) protocol.BalanceData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.BalanceData{
		Address: addr,
		Balance: s.ledger.Balance(addr),
		Pending: s.state.Pending(addr),
	}
}

func (s *Service) authorize(token string) error {
	if s.cfg.AdminToken == "" || token != s.cfg.AdminToken {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) snapshotLocked() protocol.StateData {
	snap := protocol.StateData{
		Bet:    s.state.Bet(),
		Stage:  s.state.Stage(),
		Locked: s.state.Locked(),
		Pot:    s.state.Pot(),
	}
	for i := 0; i < game.StageDistribute; i++ {
		if addr, choice, ok := s.state.Slot(i); ok {
			snap.Slots = append(snap.Slots, protocol.SlotData{
				Slot:    i,
				Address: addr,
				Choice:  choice.String(),
			})
		}
	}
	return snap
}

func (s *Service) slotRecords() []roundlog.PlayerRecord {
	var players []roundlog.PlayerRecord
	for i := 0; i < game.StageDistribute; i++ {
		if addr, choice, ok := s.state.Slot(i); ok {
			players = append(players, roundlog.PlayerRecord{
				Slot:    i,
				Address: addr,
				Choice:  choice.String(),
			})
		}
	}
	return players
}

// handleEvent runs synchronously inside the call that caused the event, so
// broadcasts are ordered exactly as the transitions happened.
func (s *Service) handleEvent(ev game.Event) {
	switch e := ev.(type) {
	case game.CommittedEvent:
		s.logger.Info().
			Str("round", s.roundID).
			Int("slot", e.Slot).
			Str("address", e.Address).
			Str("choice", e.Choice.String()).
			Msg("player committed")
		s.publish(protocol.TypePlayerCommitted, protocol.PlayerCommittedData{
			RoundID: s.roundID,
			Slot:    e.Slot,
			Address: e.Address,
			Choice:  e.Choice.String(),
			Stage:   e.Stage,
		})

	case game.SettledEvent:
		s.logger.Info().
			Str("round", s.roundID).
			Str("winner", e.WinnerAddress).
			Int64("payout", e.Payout).
			Msg("round settled")
		if s.rounds != nil {
			s.rounds.Record(roundlog.Record{
				RoundID: s.roundID,
				Bet:     s.state.Bet(),
				Outcome: roundlog.OutcomeSettled,
				Players: []roundlog.PlayerRecord{
					{Slot: 0, Address: e.Addresses[0], Choice: e.Choices[0].String()},
					{Slot: 1, Address: e.Addresses[1], Choice: e.Choices[1].String()},
				},
				WinnerSlot:    e.WinnerSlot,
				WinnerAddress: e.WinnerAddress,
				Payout:        e.Payout,
			})
		}
		s.publish(protocol.TypeRoundResult, protocol.RoundResultData{
			RoundID:       s.roundID,
			WinnerSlot:    e.WinnerSlot,
			WinnerAddress: e.WinnerAddress,
			Payout:        e.Payout,
			Choices:       []string{e.Choices[0].String(), e.Choices[1].String()},
			Addresses:     []string{e.Addresses[0], e.Addresses[1]},
		})

	case game.DrawEvent:
		s.logger.Info().
			Str("round", s.roundID).
			Str("choice", e.Choices[0].String()).
			Msg("round drawn, pot held until abort")
		s.publish(protocol.TypeRoundDraw, protocol.RoundDrawData{
			RoundID:   s.roundID,
			Choices:   []string{e.Choices[0].String(), e.Choices[1].String()},
			Addresses: []string{e.Addresses[0], e.Addresses[1]},
		})

	case game.AbortedEvent:
		s.logger.Info().Str("round", s.roundID).Int("refunds", len(e.Refunds)).Msg("round aborted")
		s.publish(protocol.TypeRoundAborted, protocol.RoundAbortedData{
			RoundID: s.roundID,
			Refunds: e.Refunds,
		})

	case game.LockChangeEvent:
		s.logger.Info().Bool("locked", e.Locked).Msg("lock changed")
		s.publish(protocol.TypeLockChanged, protocol.LockChangedData{Locked: e.Locked})
	}
}

func (s *Service) publish(t protocol.MessageType, data interface{}) {
	if s.broadcast == nil {
		return
	}
	msg, err := protocol.NewMessage(t, data)
	if err != nil {
		s.logger.Error().Err(err).Str("type", string(t)).Msg("encode broadcast")
		return
	}
	s.broadcast(msg)
}
