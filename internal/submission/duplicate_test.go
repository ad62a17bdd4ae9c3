package submission

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baely/txnsync/internal/ledger"
	"github.com/baely/txnsync/internal/ledger/memory"
)

func TestIsDuplicate(t *testing.T) {
	committed := ledger.Transaction{
		ID:            "tx-1",
		AccountID:     "acc-1",
		Amount:        decimal.RequireFromString("-3.20"),
		Date:          time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		ImportedPayee: "Coffee Shop",
		Source:        ledger.SourceImported,
	}
	store := memory.NewStore(memory.WithTransactions(committed))
	d := NewDetector(store)
	ctx := context.Background()

	same := committed
	same.ID = "tx-2"
	same.Date = time.Date(2024, 1, 5, 18, 45, 0, 0, time.UTC)
	same.Amount = decimal.RequireFromString("-3.2")
	same.Memo = "different memo"

	dup, err := d.IsDuplicate(ctx, same)
	require.NoError(t, err)
	assert.True(t, dup, "memo, id and time of day are not part of the fingerprint")

	tests := []struct {
		name   string
		mutate func(*ledger.Transaction)
	}{
		{"amount", func(tx *ledger.Transaction) { tx.Amount = decimal.RequireFromString("-3.21") }},
		{"account", func(tx *ledger.Transaction) { tx.AccountID = "acc-2" }},
		{"date", func(tx *ledger.Transaction) { tx.Date = tx.Date.AddDate(0, 0, 1) }},
		{"payee", func(tx *ledger.Transaction) { tx.ImportedPayee = "Bakery" }},
		{"source", func(tx *ledger.Transaction) { tx.Source = "Manual" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := committed
			tt.mutate(&tx)
			dup, err := d.IsDuplicate(ctx, tx)
			require.NoError(t, err)
			assert.False(t, dup)
		})
	}
}

func TestIsDuplicateSeesPending(t *testing.T) {
	store := memory.NewStore()
	d := NewDetector(store)

	tx := ledger.Transaction{ID: "tx-1", AccountID: "acc-1", Amount: decimal.NewFromInt(-5), ImportedPayee: "Bakery"}
	store.Enqueue(tx)

	tx.ID = "tx-2"
	dup, err := d.IsDuplicate(context.Background(), tx)
	require.NoError(t, err)
	assert.True(t, dup)
}
