package game

import "errors"

// Every operation failure is one of these typed errors. A failed call leaves
// the state exactly as it was before the call; none of them are retryable
// from inside the game, the caller decides whether to resubmit.
var (
	ErrLocked            = errors.New("commits are locked")
	ErrRoundFull         = errors.New("invalid stage for commit, both slots are taken")
	ErrInsufficientFunds = errors.New("attached value is below the required bet")
	ErrRoundNotReady     = errors.New("invalid stage for distribute, round needs two commits")
	ErrDraw              = errors.New("draw, both players made the same choice")
	ErrTransferFailed    = errors.New("escrow transfer failed")
	ErrInvalidChoice     = errors.New("invalid choice")
	ErrNoBalance         = errors.New("no pending balance to withdraw")
	ErrInvalidBet        = errors.New("bet must not be negative")
)
