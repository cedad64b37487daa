package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rpsbet/internal/game"
	"github.com/lox/rpsbet/internal/ledger"
	"github.com/lox/rpsbet/internal/protocol"
)

func newTestService(t *testing.T, cfg GameSettings) *Service {
	t.Helper()
	s, err := NewService(zerolog.Nop(), cfg, nil)
	require.NoError(t, err)
	return s
}

func join(t *testing.T, s *Service, name string) string {
	t.Helper()
	joined, err := s.Join(name)
	require.NoError(t, err)
	return joined.Address
}

func TestJoinCreditsFaucet(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})

	joined, err := s.Join("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", joined.Address)
	assert.EqualValues(t, 1000, joined.Balance)
	assert.EqualValues(t, 100, joined.State.Bet)
	assert.Equal(t, 0, joined.State.Stage)

	// A taken name gets a suffix rather than colliding.
	joined2, err := s.Join("alice")
	require.NoError(t, err)
	assert.NotEqual(t, "alice", joined2.Address)
	assert.Contains(t, joined2.Address, "alice-")

	joined3, err := s.Join("")
	require.NoError(t, err)
	assert.NotEmpty(t, joined3.Address)
}

func TestFullRound(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	alice := join(t, s, "alice")
	bob := join(t, s, "bob")

	require.NoError(t, s.Commit(alice, "rock", 100))
	assert.EqualValues(t, 900, s.Ledger().Balance(alice))
	assert.EqualValues(t, 100, s.Ledger().Balance("escrow"))

	require.NoError(t, s.Commit(bob, "scissors", 100))
	assert.EqualValues(t, 200, s.Ledger().Balance("escrow"))

	require.NoError(t, s.Distribute(bob))
	assert.EqualValues(t, 1100, s.Ledger().Balance(alice), "winner collects the pot")
	assert.EqualValues(t, 900, s.Ledger().Balance(bob))
	assert.EqualValues(t, 0, s.Ledger().Balance("escrow"))
	assert.Equal(t, 0, s.Snapshot().Stage)
}

func TestCommitOverpayRefundsExcess(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	alice := join(t, s, "alice")

	require.NoError(t, s.Commit(alice, "rock", 175))
	assert.EqualValues(t, 900, s.Ledger().Balance(alice), "excess 75 returned immediately")
	assert.EqualValues(t, 100, s.Ledger().Balance("escrow"), "exactly the bet retained")
}

func TestCommitFailureReturnsAttachedValue(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000, AdminToken: "secret"})
	alice := join(t, s, "alice")
	require.NoError(t, s.Lock("secret"))

	err := s.Commit(alice, "rock", 100)
	assert.ErrorIs(t, err, game.ErrLocked)
	assert.EqualValues(t, 1000, s.Ledger().Balance(alice), "attached value returned in full")
	assert.EqualValues(t, 0, s.Ledger().Balance("escrow"))
}

func TestCommitValueBelowBet(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	alice := join(t, s, "alice")

	err := s.Commit(alice, "rock", 99)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)
	assert.EqualValues(t, 1000, s.Ledger().Balance(alice))
}

func TestCommitWithoutLedgerCover(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 100})
	alice := join(t, s, "alice")

	// First commit drains the faucet balance; the caller cannot fund a
	// second one.
	require.NoError(t, s.Commit(alice, "rock", 100))
	err := s.Commit(alice, "rock", 100)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
}

func TestCommitInvalidChoice(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	alice := join(t, s, "alice")

	assert.ErrorIs(t, s.Commit(alice, "lizard", 100), game.ErrInvalidChoice)
	assert.ErrorIs(t, s.Commit(alice, "none", 100), game.ErrInvalidChoice)
	assert.EqualValues(t, 1000, s.Ledger().Balance(alice))
}

func TestCallsRequireJoin(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})

	assert.ErrorIs(t, s.Commit("ghost", "rock", 100), ErrNotJoined)
	assert.ErrorIs(t, s.Distribute("ghost"), ErrNotJoined)
	_, err := s.Withdraw("ghost")
	assert.ErrorIs(t, err, ErrNotJoined)
}

func TestDrawThenAbortThenWithdraw(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000, AdminToken: "secret"})
	alice := join(t, s, "alice")
	bob := join(t, s, "bob")

	require.NoError(t, s.Commit(alice, "paper", 100))
	require.NoError(t, s.Commit(bob, "paper", 100))

	assert.ErrorIs(t, s.Distribute(alice), game.ErrDraw)
	assert.Equal(t, 2, s.Snapshot().Stage, "round stuck at stage 2")
	assert.EqualValues(t, 200, s.Ledger().Balance("escrow"), "no funds move on a draw")

	refunds, err := s.Abort("secret")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{alice: 100, bob: 100}, refunds)
	assert.Equal(t, 0, s.Snapshot().Stage)

	// Stakes stay escrowed until each player pulls their credit.
	assert.EqualValues(t, 200, s.Ledger().Balance("escrow"))
	assert.EqualValues(t, 100, s.Balance(alice).Pending)

	amount, err := s.Withdraw(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 100, amount)
	assert.EqualValues(t, 1000, s.Ledger().Balance(alice))
	assert.EqualValues(t, 100, s.Ledger().Balance("escrow"))
}

func TestAdminTokenRequired(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000, AdminToken: "secret"})

	assert.ErrorIs(t, s.Lock("wrong"), ErrUnauthorized)
	assert.ErrorIs(t, s.Unlock(""), ErrUnauthorized)
	_, err := s.Abort("wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, s.Lock("secret"))
	assert.True(t, s.Snapshot().Locked)
	require.NoError(t, s.Unlock("secret"))
	assert.False(t, s.Snapshot().Locked)
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	assert.ErrorIs(t, s.Lock(""), ErrUnauthorized)
}

func TestFundConservation(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000, AdminToken: "secret"})
	alice := join(t, s, "alice")
	bob := join(t, s, "bob")
	total := s.Ledger().Total()

	require.NoError(t, s.Commit(alice, "rock", 150))
	require.NoError(t, s.Commit(bob, "paper", 100))
	require.NoError(t, s.Distribute(alice))
	require.NoError(t, s.Commit(alice, "scissors", 100))
	require.NoError(t, s.Commit(bob, "scissors", 100))
	require.ErrorIs(t, s.Distribute(alice), game.ErrDraw)
	_, err := s.Abort("secret")
	require.NoError(t, err)
	_, err = s.Withdraw(bob)
	require.NoError(t, err)

	assert.Equal(t, total, s.Ledger().Total(), "value is only ever moved, never created or destroyed")
}

func TestBroadcastsOnRoundEvents(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	var types []protocol.MessageType
	s.SetBroadcast(func(msg *protocol.Message) { types = append(types, msg.Type) })

	alice := join(t, s, "alice")
	bob := join(t, s, "bob")
	require.NoError(t, s.Commit(alice, "rock", 100))
	require.NoError(t, s.Commit(bob, "scissors", 100))
	require.NoError(t, s.Distribute(alice))

	assert.Equal(t, []protocol.MessageType{
		protocol.TypePlayerCommitted,
		protocol.TypePlayerCommitted,
		protocol.TypeRoundResult,
	}, types)
}

func TestDrawIsBroadcast(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	var msgs []*protocol.Message
	s.SetBroadcast(func(msg *protocol.Message) { msgs = append(msgs, msg) })

	alice := join(t, s, "alice")
	bob := join(t, s, "bob")
	require.NoError(t, s.Commit(alice, "paper", 100))
	require.NoError(t, s.Commit(bob, "paper", 100))
	require.ErrorIs(t, s.Distribute(alice), game.ErrDraw)

	require.Len(t, msgs, 3)
	require.Equal(t, protocol.TypeRoundDraw, msgs[2].Type)
	var draw protocol.RoundDrawData
	require.NoError(t, msgs[2].DecodeData(&draw))
	assert.Equal(t, []string{"paper", "paper"}, draw.Choices)
	assert.Equal(t, []string{alice, bob}, draw.Addresses)
	assert.NotEmpty(t, draw.RoundID)
}

func TestRoundIDChangesBetweenRounds(t *testing.T) {
	t.Parallel()

	s := newTestService(t, GameSettings{Bet: 100, Faucet: 1000})
	var rounds []string
	s.SetBroadcast(func(msg *protocol.Message) {
		if msg.Type == protocol.TypeRoundResult {
			var result protocol.RoundResultData
			require.NoError(t, msg.DecodeData(&result))
			rounds = append(rounds, result.RoundID)
		}
	})

	alice := join(t, s, "alice")
	bob := join(t, s, "bob")
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Commit(alice, "rock", 100))
		require.NoError(t, s.Commit(bob, "scissors", 100))
		require.NoError(t, s.Distribute(alice))
	}

	require.Len(t, rounds, 2)
	assert.NotEqual(t, rounds[0], rounds[1])
}
