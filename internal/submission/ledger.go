// Package submission resolves payees, detects duplicates and pushes
// normalized transactions to the ledger.
package submission

import (
	"context"

	"github.com/baely/txnsync/internal/ledger"
)

// Ledger is the budgeting backend the pipeline submits to. Accounts,
// Payees and Categories reflect the last Sync plus local payee creations.
// Push must report a short count as a *ledger.DeltaMismatchError.
type Ledger interface {
	ledger.Source

	Sync(ctx context.Context) error
	CreatePayee(name string) ledger.Payee
	FindMostRecentTransaction(ctx context.Context, payeeName string) (*ledger.Transaction, error)
	TransactionExists(ctx context.Context, fp ledger.Fingerprint) (bool, error)
	Enqueue(t ledger.Transaction)
	Pending() int
	Discard()
	Push(ctx context.Context, expectedDelta int) error
}

// Delta counts the new entities a chunk expects the ledger to create
type Delta struct {
	expected int
}

// Add records n more expected entities
func (d *Delta) Add(n int) {
	d.expected += n
}

// Expected returns the running count
func (d *Delta) Expected() int {
	return d.expected
}
