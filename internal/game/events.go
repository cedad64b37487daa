package game

import "time"

// EventType identifies a round event with type safety
type EventType string

const (
	EventTypeCommitted  EventType = "player_committed"
	EventTypeSettled    EventType = "round_settled"
	EventTypeDraw       EventType = "round_draw"
	EventTypeAborted    EventType = "round_aborted"
	EventTypeLockChange EventType = "lock_change"
	EventTypeWithdrawal EventType = "withdrawal"
)

func (et EventType) String() string {
	return string(et)
}

// Event is any observable state transition of the game
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// EventSink receives events as they are emitted. A nil sink is valid and
// discards everything.
type EventSink func(Event)

// CommittedEvent is emitted when a player fills a slot
type CommittedEvent struct {
	Slot      int
	Address   string
	Choice    Choice
	Stage     int // stage after the commit
	timestamp time.Time
}

func (e CommittedEvent) EventType() EventType { return EventTypeCommitted }
func (e CommittedEvent) Timestamp() time.Time { return e.timestamp }

// SettledEvent is emitted when a decisive round pays out
type SettledEvent struct {
	WinnerSlot    int
	WinnerAddress string
	Payout        int64
	Choices       [2]Choice
	Addresses     [2]string
	timestamp     time.Time
}

func (e SettledEvent) EventType() EventType { return EventTypeSettled }
func (e SettledEvent) Timestamp() time.Time { return e.timestamp }

// DrawEvent is emitted when a full round resolves to equal choices. The
// round stays at the distribute stage until aborted.
type DrawEvent struct {
	Choices   [2]Choice
	Addresses [2]string
	timestamp time.Time
}

func (e DrawEvent) EventType() EventType { return EventTypeDraw }
func (e DrawEvent) Timestamp() time.Time { return e.timestamp }

// AbortedEvent is emitted when an administrative abort credits stakes back
type AbortedEvent struct {
	Refunds   map[string]int64
	timestamp time.Time
}

func (e AbortedEvent) EventType() EventType { return EventTypeAborted }
func (e AbortedEvent) Timestamp() time.Time { return e.timestamp }

// LockChangeEvent is emitted by Lock and Unlock
type LockChangeEvent struct {
	Locked    bool
	timestamp time.Time
}

func (e LockChangeEvent) EventType() EventType { return EventTypeLockChange }
func (e LockChangeEvent) Timestamp() time.Time { return e.timestamp }

// WithdrawalEvent is emitted when a pending credit is paid out
type WithdrawalEvent struct {
	Address   string
	Amount    int64
	timestamp time.Time
}

func (e WithdrawalEvent) EventType() EventType { return EventTypeWithdrawal }
func (e WithdrawalEvent) Timestamp() time.Time { return e.timestamp }
