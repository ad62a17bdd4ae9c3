// Package ledger holds the canonical transaction model shared by every
// provider and the account/payee cache mirrored from the budgeting ledger.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/common/errors"
)

// SourceImported marks transactions created by this service
const SourceImported = "Imported"

// SplitCategoryName is the ledger's sentinel category for split transactions.
// It is never suggested as a default for a payee.
const SplitCategoryName = "Split (Multiple Categories)..."

// ClearedState is the reconciliation state of a transaction
type ClearedState string

const (
	ClearedUnspecified ClearedState = ""
	Cleared            ClearedState = "Cleared"
	Uncleared          ClearedState = "Uncleared"
)

// Flag is a review marker shown next to a transaction
type Flag string

const (
	FlagNone   Flag = ""
	FlagOrange Flag = "Orange"
)

// Account is a ledger account
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Payee is a ledger payee
type Payee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is a ledger (sub)category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Transaction is the canonical transaction submitted to the ledger
type Transaction struct {
	ID            string          `json:"id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          time.Time       `json:"date"`
	PayeeID       string          `json:"payee_id"`
	ImportedPayee string          `json:"imported_payee"`
	ImportedDate  time.Time       `json:"imported_date"`
	Memo          string          `json:"memo,omitempty"`
	CategoryID    string          `json:"category_id,omitempty"`
	Cleared       ClearedState    `json:"cleared,omitempty"`
	Flag          Flag            `json:"flag,omitempty"`
	CheckNumber   string          `json:"check_number,omitempty"`
	Source        string          `json:"source,omitempty"`
}

// Fingerprint returns the duplicate-detection key of the transaction
func (t Transaction) Fingerprint() Fingerprint {
	return Fingerprint{
		Amount:        t.Amount,
		AccountID:     t.AccountID,
		Date:          DateOf(t.Date),
		ImportedPayee: t.ImportedPayee,
		Source:        t.Source,
	}
}

// Fingerprint identifies equivalent transactions. Two different purchases
// sharing all five fields on the same day are indistinguishable.
type Fingerprint struct {
	Amount        decimal.Decimal
	AccountID     string
	Date          time.Time
	ImportedPayee string
	Source        string
}

// Matches reports whether t carries the same fingerprint
func (f Fingerprint) Matches(t Transaction) bool {
	return f.Amount.Equal(t.Amount) &&
		f.AccountID == t.AccountID &&
		DateOf(f.Date).Equal(DateOf(t.Date)) &&
		f.ImportedPayee == t.ImportedPayee &&
		f.Source == t.Source
}

// DateOf truncates t to its calendar date, keeping the day as seen in t's
// own offset.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeltaMismatchError reports a push that created a different number of
// entities than the caller expected.
type DeltaMismatchError struct {
	Expected int
	Actual   int
}

func (e *DeltaMismatchError) Error() string {
	return fmt.Sprintf("expected %d new entities, ledger created %d", e.Expected, e.Actual)
}

func (e *DeltaMismatchError) Unwrap() error {
	return errors.ErrDeltaMismatch
}
