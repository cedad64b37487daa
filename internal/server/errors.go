package server

import (
	"errors"

	"github.com/lox/rpsbet/internal/game"
	"github.com/lox/rpsbet/internal/ledger"
	"github.com/lox/rpsbet/internal/protocol"
)

var (
	ErrUnauthorized     = errors.New("server: bad or missing admin token")
	ErrNotJoined        = errors.New("server: join before calling the game")
	ErrConnectionClosed = errors.New("server: connection closed")
)

// errorCode maps a typed failure to its wire code. Every game error has a
// code of its own so clients can react without parsing messages.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrLocked):
		return protocol.CodeLocked
	case errors.Is(err, game.ErrRoundFull):
		return protocol.CodeRoundFull
	case errors.Is(err, game.ErrInsufficientFunds):
		return protocol.CodeInsufficientFunds
	case errors.Is(err, game.ErrRoundNotReady):
		return protocol.CodeRoundNotReady
	case errors.Is(err, game.ErrDraw):
		return protocol.CodeDraw
	case errors.Is(err, game.ErrTransferFailed):
		return protocol.CodeTransferFailed
	case errors.Is(err, game.ErrInvalidChoice):
		return protocol.CodeInvalidChoice
	case errors.Is(err, game.ErrNoBalance):
		return protocol.CodeNoBalance
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return protocol.CodeInsufficientBalance
	case errors.Is(err, ErrUnauthorized):
		return protocol.CodeUnauthorized
	case errors.Is(err, ErrNotJoined):
		return protocol.CodeNotJoined
	case errors.Is(err, game.ErrInvalidBet), errors.Is(err, ledger.ErrInvalidAmount):
		return protocol.CodeBadRequest
	}
	return protocol.CodeInternal
}
