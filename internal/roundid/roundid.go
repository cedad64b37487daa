// Package roundid generates sortable round identifiers: a UUIDv7 encoded as
// a 26-character lowercase base32 string, so ids collate in creation order.
package roundid

import (
	"encoding/base32"
	"fmt"

	"github.com/google/uuid"
)

// Crockford-style alphabet, lowercase, no padding.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// New returns a fresh round id.
func New() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("roundid: %w", err)
	}
	return encoding.EncodeToString(u[:]), nil
}

// MustNew is New for call sites where id generation failing means the
// process has no usable entropy source anyway.
func MustNew() string {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}

// Validate checks that id is a well-formed round id.
func Validate(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("roundid: must be 26 characters, got %d", len(id))
	}
	raw, err := encoding.DecodeString(id)
	if err != nil {
		return fmt.Errorf("roundid: %w", err)
	}
	if len(raw) != 16 {
		return fmt.Errorf("roundid: decodes to %d bytes, want 16", len(raw))
	}
	return nil
}
