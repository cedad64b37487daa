package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAndBalance(t *testing.T) {
	t.Parallel()

	l := New()
	assert.EqualValues(t, 0, l.Balance("alice"))

	require.NoError(t, l.Deposit("alice", 500))
	assert.EqualValues(t, 500, l.Balance("alice"))

	require.NoError(t, l.Deposit("alice", 100))
	assert.EqualValues(t, 600, l.Balance("alice"))

	assert.ErrorIs(t, l.Deposit("alice", -1), ErrInvalidAmount)
}

func TestTransfer(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.Deposit("alice", 300))

	require.NoError(t, l.Transfer("alice", "bob", 200))
	assert.EqualValues(t, 100, l.Balance("alice"))
	assert.EqualValues(t, 200, l.Balance("bob"))

	assert.ErrorIs(t, l.Transfer("alice", "bob", 101), ErrInsufficientBalance)
	assert.EqualValues(t, 100, l.Balance("alice"), "failed transfer moves nothing")
	assert.ErrorIs(t, l.Transfer("alice", "bob", -5), ErrInvalidAmount)

	assert.EqualValues(t, 300, l.Total())
}

func TestTransferConcurrent(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.Deposit("pot", 1000))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.Transfer("pot", "player", 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 0, l.Balance("pot"))
	assert.EqualValues(t, 1000, l.Balance("player"))
	assert.EqualValues(t, 1000, l.Total())
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	l := New()
	require.NoError(t, l.Deposit("alice", 10))
	require.NoError(t, l.Deposit("bob", 20))

	snap := l.Snapshot()
	assert.Equal(t, map[string]int64{"alice": 10, "bob": 20}, snap)

	// The snapshot is a copy, not a view.
	snap["alice"] = 0
	assert.EqualValues(t, 10, l.Balance("alice"))
}

func TestEscrow(t *testing.T) {
	t.Parallel()

	l := New()
	e := NewEscrow(l, "contract")
	require.NoError(t, l.Deposit("alice", 500))

	require.NoError(t, e.AttachValue("alice", 150))
	assert.EqualValues(t, 150, e.Balance())
	assert.EqualValues(t, 350, l.Balance("alice"))

	// Refund the overpay through the Treasury surface.
	require.NoError(t, e.Transfer("alice", 50))
	assert.EqualValues(t, 100, e.Balance())
	assert.EqualValues(t, 400, l.Balance("alice"))

	// A failed call returns the attached value in full.
	require.NoError(t, e.ReturnValue("alice", 100))
	assert.EqualValues(t, 0, e.Balance())
	assert.EqualValues(t, 500, l.Balance("alice"))

	assert.ErrorIs(t, e.Transfer("alice", 1), ErrInsufficientBalance)
	assert.ErrorIs(t, e.AttachValue("bob", 1), ErrInsufficientBalance)
	assert.Equal(t, "contract", e.Account())
}
