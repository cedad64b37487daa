package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload = errors.New("protocol: message has no payload")
	ErrUnknownType  = errors.New("protocol: unknown message type")
)

var knownTypes = map[MessageType]bool{
	TypeJoin: true, TypeCommit: true, TypeDistribute: true, TypeWithdraw: true,
	TypeGetState: true, TypeGetBalance: true, TypeLock: true, TypeUnlock: true,
	TypeAbort: true, TypeJoined: true, TypeState: true, TypeBalance: true,
	TypePlayerCommitted: true, TypeRoundResult: true, TypeRoundDraw: true,
	TypeRoundAborted: true,
	TypeLockChanged: true, TypeWithdrawal: true, TypeAck: true, TypeError: true,
}

// Marshal serializes an envelope for the wire.
func Marshal(m *Message) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal parses an envelope from the wire, rejecting unknown types so a
// bad frame surfaces as a typed failure instead of a silent no-op.
func Unmarshal(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("protocol: decode envelope: %w", err)
	}
	if !knownTypes[m.Type] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return &m, nil
}
