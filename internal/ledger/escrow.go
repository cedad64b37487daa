package ledger

// Escrow binds the ledger to a single contract account. It implements the
// game's Treasury capability and performs the attach/return of value that a
// value-bearing call carries.
type Escrow struct {
	ledger  *Ledger
	account string
}

// NewEscrow creates an escrow over the given contract account.
func NewEscrow(l *Ledger, account string) *Escrow {
	return &Escrow{ledger: l, account: account}
}

// Account returns the contract's own address.
func (e *Escrow) Account() string {
	return e.account
}

// Balance returns the value currently held in escrow.
func (e *Escrow) Balance() int64 {
	return e.ledger.Balance(e.account)
}

// Transfer moves held value out to a player. This is the escrow-transfer
// capability the game uses for refunds, payouts and withdrawals.
func (e *Escrow) Transfer(to string, amount int64) error {
	return e.ledger.Transfer(e.account, to, amount)
}

// AttachValue moves a call's attached value from the caller into escrow
// before the call executes, mirroring how the host delivers value with a
// message call.
func (e *Escrow) AttachValue(caller string, value int64) error {
	return e.ledger.Transfer(caller, e.account, value)
}

// ReturnValue reverses AttachValue when the call it funded failed, so a
// failed call leaves the caller's balance untouched.
func (e *Escrow) ReturnValue(caller string, value int64) error {
	return e.ledger.Transfer(e.account, caller, value)
}
