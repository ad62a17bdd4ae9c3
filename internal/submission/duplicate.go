package submission

import (
	"context"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

// Detector decides whether a transaction is already in the ledger
type Detector struct {
	ledger Ledger
}

// NewDetector returns a Detector backed by l
func NewDetector(l Ledger) *Detector {
	return &Detector{ledger: l}
}

// IsDuplicate reports whether a committed or pending transaction shares
// t's fingerprint.
func (d *Detector) IsDuplicate(ctx context.Context, t ledger.Transaction) (bool, error) {
	exists, err := d.ledger.TransactionExists(ctx, t.Fingerprint())
	if err != nil {
		return false, errors.Wrap(err, "failed to check for duplicate")
	}
	return exists, nil
}
