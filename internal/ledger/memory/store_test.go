package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

func coffee(id string, day int) ledger.Transaction {
	return ledger.Transaction{
		ID:            id,
		AccountID:     "acc-1",
		Amount:        decimal.RequireFromString("-3.20"),
		Date:          time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		ImportedPayee: "Coffee Shop",
		CategoryID:    "cat-1",
		Source:        ledger.SourceImported,
	}
}

func TestSyncExposesCommittedState(t *testing.T) {
	s := NewStore(WithAccounts(ledger.Account{ID: "acc-1", Name: "Checking"}))
	assert.Empty(t, s.Accounts(), "nothing visible before sync")

	require.NoError(t, s.Sync(context.Background()))
	assert.Equal(t, []ledger.Account{{ID: "acc-1", Name: "Checking"}}, s.Accounts())

	s.AddPayee(ledger.Payee{ID: "pay-1", Name: "Bakery"})
	assert.Empty(t, s.Payees())
	require.NoError(t, s.Sync(context.Background()))
	assert.Len(t, s.Payees(), 1)
	assert.Equal(t, 2, s.Stats().Syncs)
}

func TestCreatePayeeIsVisibleBeforePush(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Sync(context.Background()))

	p := s.CreatePayee("Coffee Shop")
	assert.NotEmpty(t, p.ID)
	assert.Contains(t, s.Payees(), p)
	assert.Empty(t, s.CommittedPayees())
	assert.Equal(t, 1, s.Pending())
}

func TestPushCommitsPending(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	s.CreatePayee("Coffee Shop")
	s.Enqueue(coffee("tx-1", 5))
	require.NoError(t, s.Push(ctx, 2))

	assert.Zero(t, s.Pending())
	assert.Len(t, s.CommittedPayees(), 1)
	assert.Len(t, s.Transactions(), 1)
	assert.Equal(t, Stats{Enqueued: 1, Pushes: 1}, s.Stats())
}

func TestPushReportsDeltaMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Sync(ctx))

	s.CreatePayee("Coffee Shop")
	s.AddPayee(ledger.Payee{ID: "other", Name: "Coffee Shop"})
	s.Enqueue(coffee("tx-1", 5))

	err := s.Push(ctx, 2)
	var mismatch *ledger.DeltaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Actual)
	assert.Zero(t, s.Pending(), "pending entities are abandoned")
}

func TestWithAccountNames(t *testing.T) {
	s := NewStore(WithAccountNames("Checking", "Savings"))
	require.NoError(t, s.Sync(context.Background()))

	accounts := s.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "Checking", accounts[0].Name)
	assert.Equal(t, "Savings", accounts[1].Name)
	assert.NotEmpty(t, accounts[0].ID)
	assert.NotEqual(t, accounts[0].ID, accounts[1].ID)
}

func TestTransactionExistsChecksPending(t *testing.T) {
	ctx := context.Background()
	committed := coffee("tx-1", 5)
	s := NewStore(WithTransactions(committed))

	found, err := s.TransactionExists(ctx, committed.Fingerprint())
	require.NoError(t, err)
	assert.True(t, found)

	pending := coffee("tx-2", 6)
	found, err = s.TransactionExists(ctx, pending.Fingerprint())
	require.NoError(t, err)
	assert.False(t, found)

	s.Enqueue(pending)
	found, err = s.TransactionExists(ctx, pending.Fingerprint())
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFindMostRecentTransaction(t *testing.T) {
	ctx := context.Background()
	older := coffee("tx-1", 2)
	newer := coffee("tx-2", 9)
	newer.CategoryID = "cat-2"
	s := NewStore(WithTransactions(newer, older))

	got, err := s.FindMostRecentTransaction(ctx, "Coffee Shop")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "tx-2", got.ID)

	got, err = s.FindMostRecentTransaction(ctx, "Nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewStore()
	assert.ErrorIs(t, s.Sync(ctx), context.Canceled)
	assert.ErrorIs(t, s.Push(ctx, 0), context.Canceled)
	assert.Zero(t, s.Stats().Syncs)
}
