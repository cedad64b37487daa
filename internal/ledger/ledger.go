// Package ledger is the in-memory stand-in for the host environment's
// account model: a flat address to balance table with value transfer.
package ledger

import (
	"errors"
	"sync"
)

var (
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInvalidAmount       = errors.New("ledger: amount must not be negative")
)

// Ledger maps addresses to balances. It is safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// Balance returns the balance of addr. Unknown addresses hold zero.
func (l *Ledger) Balance(addr string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

// Deposit credits addr with amount. This is the faucet path; real value
// enters the system only here.
func (l *Ledger) Deposit(addr string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[addr] += amount
	return nil
}

// Transfer moves amount from one address to another. The debit and credit
// are applied atomically; a shortfall moves nothing.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Total returns the sum of all balances. Useful for conservation checks.
func (l *Ledger) Total() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total int64
	for _, b := range l.balances {
		total += b
	}
	return total
}

// Snapshot returns a copy of every balance.
func (l *Ledger) Snapshot() map[string]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]int64, len(l.balances))
	for addr, b := range l.balances {
		out[addr] = b
	}
	return out
}
