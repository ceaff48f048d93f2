/*
account.go - Per-client balances and dispute application

PURPOSE:
  An Account owns the ledger entries of one client and applies event
  semantics to its balances. Every operation is atomic: it either fully
  applies or leaves the account unchanged.

BALANCE MODEL:
  available: funds the client may withdraw
  held:      funds frozen by active disputes
  total:     available + held (derived, never stored)

  Both available and held may go negative. Disputing a deposit moves its
  amount from available to held even when the funds were already withdrawn.
  That models real chargeback risk: the money may be gone, the liability
  is not.

LOCKING:
  A successful chargeback locks the account. A locked account accepts no
  further mutation; the engine rejects events for it before dispatching
  here (see engine.go).

SEE ALSO:
  - entry.go: The lifecycle state machine these operations drive
  - engine.go: Lock checks and account lookup/creation
*/
package ledger

import "github.com/shopspring/decimal"

// Account holds one client's balances and owned ledger entries.
type Account struct {
	client    ClientID
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
	entries   map[TransactionID]*Entry
}

func newAccount(client ClientID) *Account {
	return &Account{
		client:    client,
		available: decimal.Zero,
		held:      decimal.Zero,
		entries:   make(map[TransactionID]*Entry),
	}
}

// Available returns the funds the client may currently withdraw.
func (a *Account) Available() decimal.Decimal { return a.available }

// Held returns the funds frozen by active disputes.
func (a *Account) Held() decimal.Decimal { return a.held }

// Total returns available + held.
func (a *Account) Total() decimal.Decimal { return a.available.Add(a.held) }

// Locked reports whether a chargeback has frozen this account.
func (a *Account) Locked() bool { return a.locked }

// Deposit credits the entry's amount to available and takes ownership of
// the entry. Amount non-negativity is the intake boundary's contract, not
// checked here.
func (a *Account) Deposit(e *Entry) {
	a.available = a.available.Add(e.Amount())
	a.entries[e.ID()] = e
}

// Withdraw debits the entry's amount from available. Fails with
// InsufficientFundsError when available < amount; the entry is then not
// recorded on the account (its id stays consumed globally).
func (a *Account) Withdraw(e *Entry) error {
	if a.available.LessThan(e.Amount()) {
		return &InsufficientFundsError{Client: a.client, Available: a.available, Requested: e.Amount()}
	}
	a.available = a.available.Sub(e.Amount())
	a.entries[e.ID()] = e
	return nil
}

// Dispute freezes a deposit's amount: available -= amount, held += amount.
// No floor at zero, available may go negative. Withdrawal entries are never
// disputable; the kind is checked before the lifecycle mark so a rejected
// dispute leaves the entry state untouched.
func (a *Account) Dispute(id TransactionID) error {
	e, ok := a.entries[id]
	if !ok {
		return &TransactionNotFoundError{Tx: id}
	}
	if e.Kind() == KindWithdrawal {
		return &DisputeNotSupportedError{Tx: id}
	}
	if err := e.markDisputed(); err != nil {
		return err
	}
	a.available = a.available.Sub(e.Amount())
	a.held = a.held.Add(e.Amount())
	return nil
}

// Resolve releases a disputed deposit back to available.
func (a *Account) Resolve(id TransactionID) error {
	e, ok := a.entries[id]
	if !ok {
		return &TransactionNotFoundError{Tx: id}
	}
	if err := e.markResolved(); err != nil {
		return err
	}
	// Unreachable for withdrawals: they can never enter Disputed. Kept as a
	// guard so a future lifecycle change cannot silently move withdrawal
	// funds.
	if e.Kind() == KindWithdrawal {
		return &DisputeNotSupportedError{Tx: id}
	}
	if err := a.checkHeldCovers(e); err != nil {
		return err
	}
	a.held = a.held.Sub(e.Amount())
	a.available = a.available.Add(e.Amount())
	return nil
}

// Chargeback withdraws a disputed deposit's held funds permanently and
// locks the account. Locking happens only on success.
func (a *Account) Chargeback(id TransactionID) error {
	e, ok := a.entries[id]
	if !ok {
		return &TransactionNotFoundError{Tx: id}
	}
	if err := e.markChargedBack(); err != nil {
		return err
	}
	if e.Kind() == KindWithdrawal {
		return &DisputeNotSupportedError{Tx: id}
	}
	if err := a.checkHeldCovers(e); err != nil {
		return err
	}
	a.held = a.held.Sub(e.Amount())
	a.locked = true
	return nil
}

// checkHeldCovers verifies the held balance can cover reversing a dispute.
// A disputed deposit always contributes its full amount to held, so falling
// short here is a ledger bug, not a user error.
func (a *Account) checkHeldCovers(e *Entry) error {
	if a.held.LessThan(e.Amount()) {
		return &InternalInconsistencyError{
			Tx:     e.ID(),
			Detail: "held funds " + a.held.String() + " less than disputed amount " + e.Amount().String(),
		}
	}
	return nil
}
