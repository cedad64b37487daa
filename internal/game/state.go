// Package game implements a two-player, bet-settled rock-paper-scissors
// escrow. Two players each commit a choice with the bet attached, and the
// pot of twice the bet is paid to the winner of the classic cyclic rule.
//
// The State performs no locking of its own: the host is expected to execute
// one call at a time, end to end, including any nested transfers. Every
// failed call leaves the state exactly as it was before the call.
package game

import (
	"fmt"
	"time"
)

// Treasury is the escrow-transfer capability supplied by the host. It moves
// value held by the game out to a player and may fail (insufficient escrow
// balance, destination rejects).
type Treasury interface {
	Transfer(to string, amount int64) error
}

// stages of a round: 0 and 1 are the number of commits received so far,
// 2 means both slots are filled and the round can be distributed.
const (
	StageFirstCommit  = 0
	StageSecondCommit = 1
	StageDistribute   = 2
)

type slot struct {
	addr   string
	choice Choice
}

// State is the whole game: the bet, the round-progress counter, the
// administrative lock, the two commitment slots and the pending withdrawal
// credits. It lives for the life of the host and is reused across rounds.
type State struct {
	bet      int64
	stage    int
	locked   bool
	slots    [2]slot
	pending  map[string]int64
	treasury Treasury
	sink     EventSink
}

// NewState creates a game bound to the given treasury. Call Configure to
// set the bet before accepting commits.
func NewState(treasury Treasury) *State {
	return &State{
		treasury: treasury,
		pending:  make(map[string]int64),
	}
}

// SetEventSink installs an observer for round events. Pass nil to disable.
func (s *State) SetEventSink(sink EventSink) {
	s.sink = sink
}

func (s *State) emit(ev Event) {
	if s.sink != nil {
		s.sink(ev)
	}
}

// Configure sets the bet and resets the round: stage back to 0, lock off.
// It is the single configuration point; calling it mid-round discards the
// pending commitment's economic context, so the host must only call it
// before the first commit of a round.
func (s *State) Configure(bet int64) error {
	if bet < 0 {
		return ErrInvalidBet
	}
	s.bet = bet
	s.stage = StageFirstCommit
	s.locked = false
	return nil
}

// Lock pauses new commits. Distribute and Withdraw are unaffected.
func (s *State) Lock() {
	s.locked = true
	s.emit(LockChangeEvent{Locked: true, timestamp: time.Now()})
}

// Unlock re-enables commits.
func (s *State) Unlock() {
	s.locked = false
	s.emit(LockChangeEvent{Locked: false, timestamp: time.Now()})
}

// Commit records the caller's choice into the currently open slot and
// advances the stage. The attached value must cover the bet; any overpay is
// refunded through the treasury after the slot is recorded, so a re-entrant
// transfer can never see a half-filled round. Preconditions are checked in
// order: lock, stage, funds, choice.
func (s *State) Commit(caller string, choice Choice, value int64) error {
	if s.locked {
		return ErrLocked
	}
	if s.stage > StageSecondCommit {
		return ErrRoundFull
	}
	if value < s.bet {
		return ErrInsufficientFunds
	}
	if !choice.Playable() {
		return ErrInvalidChoice
	}

	idx := s.stage
	s.slots[idx] = slot{addr: caller, choice: choice}
	s.stage = idx + 1

	if excess := value - s.bet; excess > 0 {
		if err := s.treasury.Transfer(caller, excess); err != nil {
			s.slots[idx] = slot{}
			s.stage = idx
			return fmt.Errorf("%w: refund of %d to %s: %v", ErrTransferFailed, excess, caller, err)
		}
	}

	s.emit(CommittedEvent{
		Slot:      idx,
		Address:   caller,
		Choice:    choice,
		Stage:     s.stage,
		timestamp: time.Now(),
	})
	return nil
}

// Distribute resolves a full round and pays the pot of twice the bet to the
// winning slot's address. Equal choices fail with ErrDraw and leave the
// round at stage 2; Abort is the way out of that state. The stage is reset
// before the payout transfer and restored if the transfer fails.
func (s *State) Distribute() error {
	if s.stage != StageDistribute {
		return ErrRoundNotReady
	}

	p0, p1 := s.slots[0], s.slots[1]
	if !p0.choice.Playable() || !p1.choice.Playable() {
		return ErrInvalidChoice
	}

	var winner int
	switch {
	case p0.choice == p1.choice:
		s.emit(DrawEvent{
			Choices:   [2]Choice{p0.choice, p1.choice},
			Addresses: [2]string{p0.addr, p1.addr},
			timestamp: time.Now(),
		})
		return ErrDraw
	case p0.choice.Beats(p1.choice):
		winner = 0
	default:
		winner = 1
	}

	payout := 2 * s.bet
	s.stage = StageFirstCommit
	if payout > 0 {
		if err := s.treasury.Transfer(s.slots[winner].addr, payout); err != nil {
			s.stage = StageDistribute
			return fmt.Errorf("%w: payout of %d to %s: %v", ErrTransferFailed, payout, s.slots[winner].addr, err)
		}
	}

	s.emit(SettledEvent{
		WinnerSlot:    winner,
		WinnerAddress: s.slots[winner].addr,
		Payout:        payout,
		Choices:       [2]Choice{p0.choice, p1.choice},
		Addresses:     [2]string{p0.addr, p1.addr},
		timestamp:     time.Now(),
	})
	return nil
}

// Abort is the administrative reset for a round that cannot settle, most
// notably one stuck at stage 2 after a draw. Each committed player's stake
// is credited to their pending balance for later Withdraw. No transfers
// happen here, so Abort cannot fail.
func (s *State) Abort() map[string]int64 {
	refunds := make(map[string]int64)
	for i := 0; i < s.stage && i < len(s.slots); i++ {
		if s.bet > 0 {
			s.pending[s.slots[i].addr] += s.bet
			refunds[s.slots[i].addr] += s.bet
		}
		s.slots[i] = slot{}
	}
	s.stage = StageFirstCommit

	s.emit(AbortedEvent{Refunds: refunds, timestamp: time.Now()})
	return refunds
}

// Withdraw pays the caller's entire pending credit out through the treasury.
// The credit is zeroed before the transfer and restored on failure.
func (s *State) Withdraw(caller string) (int64, error) {
	amount := s.pending[caller]
	if amount <= 0 {
		return 0, ErrNoBalance
	}
	delete(s.pending, caller)
	if err := s.treasury.Transfer(caller, amount); err != nil {
		s.pending[caller] = amount
		return 0, fmt.Errorf("%w: withdrawal of %d to %s: %v", ErrTransferFailed, amount, caller, err)
	}

	s.emit(WithdrawalEvent{Address: caller, Amount: amount, timestamp: time.Now()})
	return amount, nil
}

// Bet returns the required stake per player.
func (s *State) Bet() int64 { return s.bet }

// Stage returns the number of commits received in the current round.
func (s *State) Stage() int { return s.stage }

// Locked reports whether commits are administratively paused.
func (s *State) Locked() bool { return s.locked }

// Pot returns the value escrowed by the current round.
func (s *State) Pot() int64 { return int64(s.stage) * s.bet }

// Pending returns the caller's withdrawable credit.
func (s *State) Pending(addr string) int64 { return s.pending[addr] }

// PendingTotal returns the sum of all withdrawable credits.
func (s *State) PendingTotal() int64 {
	var total int64
	for _, v := range s.pending {
		total += v
	}
	return total
}

// Slot returns the address and choice committed into the given slot. The
// pair is only meaningful once the stage has advanced past the slot index;
// before that the choice reads as None.
func (s *State) Slot(i int) (addr string, choice Choice, ok bool) {
	if i < 0 || i >= len(s.slots) || i >= s.stage {
		return "", None, false
	}
	return s.slots[i].addr, s.slots[i].choice, true
}
