// Package memory is an in-memory ledger backend.
//
// Committed state only becomes visible to Accounts/Payees/Categories after
// Sync, mirroring a remote budget that has to be downloaded. Data is lost on
// restart; use the postgres backend for persistence.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/baely/txnsync/internal/ledger"
)

// Stats counts the calls made against a Store
type Stats struct {
	Syncs    int
	Enqueued int
	Pushes   int
}

// Store is an in-memory implementation of the ledger client contract
type Store struct {
	mu sync.Mutex

	accounts     []ledger.Account
	payees       []ledger.Payee
	categories   []ledger.Category
	transactions []ledger.Transaction

	synced struct {
		accounts   []ledger.Account
		payees     []ledger.Payee
		categories []ledger.Category
	}

	pendingPayees       []ledger.Payee
	pendingTransactions []ledger.Transaction

	stats Stats
}

// Option seeds a Store
type Option func(*Store)

// WithAccounts seeds committed accounts
func WithAccounts(accounts ...ledger.Account) Option {
	return func(s *Store) { s.accounts = append(s.accounts, accounts...) }
}

// WithAccountNames seeds committed accounts with generated ids
func WithAccountNames(names ...string) Option {
	return func(s *Store) {
		for _, name := range names {
			s.accounts = append(s.accounts, ledger.Account{ID: uuid.NewString(), Name: name})
		}
	}
}

// WithPayees seeds committed payees
func WithPayees(payees ...ledger.Payee) Option {
	return func(s *Store) { s.payees = append(s.payees, payees...) }
}

// WithCategories seeds committed categories
func WithCategories(categories ...ledger.Category) Option {
	return func(s *Store) { s.categories = append(s.categories, categories...) }
}

// WithTransactions seeds committed transactions
func WithTransactions(transactions ...ledger.Transaction) Option {
	return func(s *Store) { s.transactions = append(s.transactions, transactions...) }
}

// NewStore creates a new in-memory ledger
func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync downloads committed state into the visible snapshot
func (s *Store) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Syncs++

	s.synced.accounts = append([]ledger.Account(nil), s.accounts...)
	s.synced.payees = append([]ledger.Payee(nil), s.payees...)
	s.synced.categories = append([]ledger.Category(nil), s.categories...)
	return nil
}

// Accounts returns the synced accounts
func (s *Store) Accounts() []ledger.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Account(nil), s.synced.accounts...)
}

// Payees returns the synced payees followed by pending ones
func (s *Store) Payees() []ledger.Payee {
	s.mu.Lock()
	defer s.mu.Unlock()

	payees := make([]ledger.Payee, 0, len(s.synced.payees)+len(s.pendingPayees))
	payees = append(payees, s.synced.payees...)
	return append(payees, s.pendingPayees...)
}

// Categories returns the synced categories
func (s *Store) Categories() []ledger.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Category(nil), s.synced.categories...)
}

// CreatePayee adds a payee to the pending change set
func (s *Store) CreatePayee(name string) ledger.Payee {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := ledger.Payee{ID: uuid.NewString(), Name: name}
	s.pendingPayees = append(s.pendingPayees, p)
	return p
}

// FindMostRecentTransaction returns the latest committed transaction
// imported for payeeName, or nil.
func (s *Store) FindMostRecentTransaction(ctx context.Context, payeeName string) (*ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *ledger.Transaction
	for i := range s.transactions {
		t := s.transactions[i]
		if t.ImportedPayee != payeeName {
			continue
		}
		if latest == nil || t.Date.After(latest.Date) {
			latest = &t
		}
	}
	return latest, nil
}

// TransactionExists reports whether a committed or pending transaction
// carries the fingerprint.
func (s *Store) TransactionExists(ctx context.Context, fp ledger.Fingerprint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.transactions {
		if fp.Matches(t) {
			return true, nil
		}
	}
	for _, t := range s.pendingTransactions {
		if fp.Matches(t) {
			return true, nil
		}
	}
	return false, nil
}

// Enqueue appends a transaction to the pending change set
func (s *Store) Enqueue(t ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Enqueued++
	s.pendingTransactions = append(s.pendingTransactions, t)
}

// Pending returns the number of unpushed entities
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingPayees) + len(s.pendingTransactions)
}

// Push commits the pending change set. Payees whose name is already
// committed and transactions whose id is already committed are skipped,
// so the created count can fall short of expectedDelta. The pending set is
// cleared either way.
func (s *Store) Push(ctx context.Context, expectedDelta int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Pushes++
	created := 0
	for _, p := range s.pendingPayees {
		if s.hasPayee(p.Name) {
			continue
		}
		s.payees = append(s.payees, p)
		created++
	}
	for _, t := range s.pendingTransactions {
		if s.hasTransaction(t.ID) {
			continue
		}
		s.transactions = append(s.transactions, t)
		created++
	}
	s.clearPending()

	if created != expectedDelta {
		return &ledger.DeltaMismatchError{Expected: expectedDelta, Actual: created}
	}
	return nil
}

// Discard drops the pending change set without pushing it
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearPending()
}

func (s *Store) clearPending() {
	s.pendingPayees = nil
	s.pendingTransactions = nil
}

func (s *Store) hasPayee(name string) bool {
	for _, p := range s.payees {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) hasTransaction(id string) bool {
	for _, t := range s.transactions {
		if t.ID == id {
			return true
		}
	}
	return false
}

// AddPayee commits a payee directly, as another ledger client would.
// It is not visible until the next Sync.
func (s *Store) AddPayee(p ledger.Payee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payees = append(s.payees, p)
}

// Transactions returns the committed transactions
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.transactions...)
}

// CommittedPayees returns the committed payees
func (s *Store) CommittedPayees() []ledger.Payee {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Payee(nil), s.payees...)
}

// Stats returns the call counters
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
