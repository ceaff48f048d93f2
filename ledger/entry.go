/*
entry.go - Ledger entry and its dispute lifecycle

PURPOSE:
  An Entry records one historical deposit or withdrawal and tracks where it
  is in the dispute lifecycle. Entries are never deleted: they are retained
  for the life of the account so later disputes can reference them.

LIFECYCLE:
  Normal → Disputed → Normal      (mark resolved)
                    → ChargedBack (mark chargedback, terminal)

UNIQUENESS:
  Transaction ids are unique across the whole run, across all clients.
  newEntry registers the id in the engine's seen-set before anything else,
  so a rejected withdrawal still consumes its id. That is deliberate:
  the attempt was recorded, matching audit semantics.

SEE ALSO:
  - account.go: Applies lifecycle transitions to balances
*/
package ledger

import "github.com/shopspring/decimal"

// Entry is one historical deposit or withdrawal owned by a client account.
type Entry struct {
	id     TransactionID
	kind   Kind
	amount decimal.Decimal
	state  EntryState
}

// newEntry registers id in the global seen-set and returns a fresh entry in
// StateNormal. Fails with DuplicateTransactionError if the id was ever used
// before, by any client. Registration is not undone on later failures.
func newEntry(seen map[TransactionID]struct{}, id TransactionID, kind Kind, amount decimal.Decimal) (*Entry, error) {
	if _, dup := seen[id]; dup {
		return nil, &DuplicateTransactionError{Tx: id}
	}
	seen[id] = struct{}{}
	return &Entry{id: id, kind: kind, amount: amount, state: StateNormal}, nil
}

// ID returns the process-wide unique transaction id.
func (e *Entry) ID() TransactionID { return e.id }

// Kind returns whether the entry is a deposit or a withdrawal.
func (e *Entry) Kind() Kind { return e.kind }

// Amount returns the entry's fixed amount regardless of kind.
func (e *Entry) Amount() decimal.Decimal { return e.amount }

// State returns the entry's current lifecycle state.
func (e *Entry) State() EntryState { return e.state }

// markDisputed transitions Normal → Disputed.
func (e *Entry) markDisputed() error {
	if err := e.checkState(StateNormal); err != nil {
		return err
	}
	e.state = StateDisputed
	return nil
}

// markResolved transitions Disputed → Normal. The entry becomes disputable
// again afterwards.
func (e *Entry) markResolved() error {
	if err := e.checkState(StateDisputed); err != nil {
		return err
	}
	e.state = StateNormal
	return nil
}

// markChargedBack transitions Disputed → ChargedBack. Terminal: no further
// transition ever succeeds.
func (e *Entry) markChargedBack() error {
	if err := e.checkState(StateDisputed); err != nil {
		return err
	}
	e.state = StateChargedBack
	return nil
}

func (e *Entry) checkState(expected EntryState) error {
	if e.state != expected {
		return &InvalidStateTransitionError{Tx: e.id, Expected: expected, Actual: e.state}
	}
	return nil
}
