// Package protocol defines the JSON wire messages between the escrow server
// and its clients.
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of message
type MessageType string

const (
	// Client -> Server
	TypeJoin       MessageType = "join"
	TypeCommit     MessageType = "commit"
	TypeDistribute MessageType = "distribute"
	TypeWithdraw   MessageType = "withdraw"
	TypeGetState   MessageType = "get_state"
	TypeGetBalance MessageType = "get_balance"
	TypeLock       MessageType = "lock"
	TypeUnlock     MessageType = "unlock"
	TypeAbort      MessageType = "abort"

	// Server -> Client
	TypeJoined          MessageType = "joined"
	TypeState           MessageType = "state"
	TypeBalance         MessageType = "balance"
	TypePlayerCommitted MessageType = "player_committed"
	TypeRoundResult     MessageType = "round_result"
	TypeRoundDraw       MessageType = "round_draw"
	TypeRoundAborted    MessageType = "round_aborted"
	TypeLockChanged     MessageType = "lock_changed"
	TypeWithdrawal      MessageType = "withdrawal"
	TypeAck             MessageType = "ack"
	TypeError           MessageType = "error"
)

// Error codes, mirroring the game's error taxonomy one to one.
const (
	CodeLocked              = "locked"
	CodeRoundFull           = "round_full"
	CodeInsufficientFunds   = "insufficient_funds"
	CodeRoundNotReady       = "round_not_ready"
	CodeDraw                = "draw"
	CodeTransferFailed      = "transfer_failed"
	CodeInvalidChoice       = "invalid_choice"
	CodeNoBalance           = "no_balance"
	CodeInsufficientBalance = "insufficient_balance"
	CodeUnauthorized        = "unauthorized"
	CodeNotJoined           = "not_joined"
	CodeBadRequest          = "bad_request"
	CodeInternal            = "internal"
)

// Message is the envelope every frame travels in.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope with the current timestamp.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = bytes
	}
	return &Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now(),
	}, nil
}

// DecodeData unmarshals the payload into v.
func (m *Message) DecodeData(v interface{}) error {
	if len(m.Data) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(m.Data, v)
}

// Client -> Server payloads

// JoinData registers a player identity with the host.
type JoinData struct {
	Name string `json:"name"`
}

// CommitData is a funded choice submission. Value is the amount attached to
// the call; the bet is taken from it and any excess refunded.
type CommitData struct {
	Choice string `json:"choice"`
	Value  int64  `json:"value"`
}

// AdminData authenticates lock, unlock and abort requests.
type AdminData struct {
	Token string `json:"token"`
}

// Server -> Client payloads

// SlotData describes one committed slot of the current round. Choices are
// submitted in the clear, so they are public the moment they land.
type SlotData struct {
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	Choice  string `json:"choice"`
}

// StateData is a snapshot of the game.
type StateData struct {
	Bet    int64      `json:"bet"`
	Stage  int        `json:"stage"`
	Locked bool       `json:"locked"`
	Pot    int64      `json:"pot"`
	Slots  []SlotData `json:"slots,omitempty"`
}

// JoinedData confirms a join with the assigned address and faucet balance.
type JoinedData struct {
	Address string    `json:"address"`
	Balance int64     `json:"balance"`
	State   StateData `json:"state"`
}

// BalanceData reports an address's ledger balance and pending game credit.
type BalanceData struct {
	Address string `json:"address"`
	Balance int64  `json:"balance"`
	Pending int64  `json:"pending"`
}

// PlayerCommittedData is broadcast when a slot fills.
type PlayerCommittedData struct {
	RoundID string `json:"round_id"`
	Slot    int    `json:"slot"`
	Address string `json:"address"`
	Choice  string `json:"choice"`
	Stage   int    `json:"stage"`
}

// RoundResultData is broadcast when a round settles decisively.
type RoundResultData struct {
	RoundID       string   `json:"round_id"`
	WinnerSlot    int      `json:"winner_slot"`
	WinnerAddress string   `json:"winner_address"`
	Payout        int64    `json:"payout"`
	Choices       []string `json:"choices"`
	Addresses     []string `json:"addresses"`
}

// RoundDrawData is broadcast when a full round resolves to equal choices.
// The pot stays escrowed until an administrative abort.
type RoundDrawData struct {
	RoundID   string   `json:"round_id"`
	Choices   []string `json:"choices"`
	Addresses []string `json:"addresses"`
}

// RoundAbortedData is broadcast when an administrative abort credits stakes
// back to the committed players.
type RoundAbortedData struct {
	RoundID string           `json:"round_id"`
	Refunds map[string]int64 `json:"refunds"`
}

// LockChangedData is broadcast when the administrative gate flips.
type LockChangedData struct {
	Locked bool `json:"locked"`
}

// WithdrawalData confirms a pull-payment to its caller.
type WithdrawalData struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

// ErrorData carries a typed failure back to the caller.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
