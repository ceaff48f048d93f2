package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT - Frozen final state yielded at shutdown
// =============================================================================

// ClientBalance is the read-only view of one account.
type ClientBalance struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Total     decimal.Decimal
	Locked    bool
}

// Snapshot is the immutable final state of every client ever seen, sorted
// by client id. Amounts carry full precision; rendering at DecimalPlaces
// happens at the reporting boundary.
type Snapshot []ClientBalance

// snapshot copies the live account map into a sorted, immutable view.
func (e *Engine) snapshot() Snapshot {
	snap := make(Snapshot, 0, len(e.accounts))
	for id, acct := range e.accounts {
		snap = append(snap, ClientBalance{
			Client:    id,
			Available: acct.Available(),
			Held:      acct.Held(),
			Total:     acct.Total(),
			Locked:    acct.Locked(),
		})
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Client < snap[j].Client })
	return snap
}
