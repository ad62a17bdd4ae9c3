// Package postgres is a PostgreSQL ledger backend built on lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

//go:embed schema.sql
var schema string

// Config holds the connection settings
type Config struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

// ConnString renders cfg as a lib/pq keyword/value connection string
func ConnString(cfg Config) string {
	return fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// Client is a ledger backed by PostgreSQL. Pending changes are held in
// memory until Push writes them in one database transaction.
type Client struct {
	db *sql.DB

	accounts   []ledger.Account
	payees     []ledger.Payee
	categories []ledger.Category

	pendingPayees       []ledger.Payee
	pendingTransactions []ledger.Transaction
}

// NewClient opens a connection pool. The connection is verified lazily.
func NewClient(cfg Config) (*Client, error) {
	driver, err := sql.Open("postgres", ConnString(cfg))
	if err != nil {
		return nil, err
	}
	return newClient(driver), nil
}

func newClient(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close releases the connection pool
func (c *Client) Close() error {
	return c.db.Close()
}

// Migrate creates the ledger tables when missing
func (c *Client) Migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "failed to apply schema")
}

// Sync reloads accounts, payees and categories
func (c *Client) Sync(ctx context.Context) error {
	accounts, err := queryNamed(ctx, c.db, `SELECT id, name FROM accounts`, func(id, name string) ledger.Account {
		return ledger.Account{ID: id, Name: name}
	})
	if err != nil {
		return unavailable(err, "failed to load accounts")
	}
	payees, err := queryNamed(ctx, c.db, `SELECT id, name FROM payees`, func(id, name string) ledger.Payee {
		return ledger.Payee{ID: id, Name: name}
	})
	if err != nil {
		return unavailable(err, "failed to load payees")
	}
	categories, err := queryNamed(ctx, c.db, `SELECT id, name FROM categories`, func(id, name string) ledger.Category {
		return ledger.Category{ID: id, Name: name}
	})
	if err != nil {
		return unavailable(err, "failed to load categories")
	}

	c.accounts = accounts
	c.payees = payees
	c.categories = categories
	return nil
}

func queryNamed[T any](ctx context.Context, db *sql.DB, q string, build func(id, name string) T) ([]T, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		items = append(items, build(id, name))
	}
	return items, rows.Err()
}

// Accounts returns the synced accounts
func (c *Client) Accounts() []ledger.Account {
	return c.accounts
}

// Payees returns the synced payees followed by pending ones
func (c *Client) Payees() []ledger.Payee {
	payees := make([]ledger.Payee, 0, len(c.payees)+len(c.pendingPayees))
	payees = append(payees, c.payees...)
	return append(payees, c.pendingPayees...)
}

// Categories returns the synced categories
func (c *Client) Categories() []ledger.Category {
	return c.categories
}

// CreatePayee adds a payee to the pending change set
func (c *Client) CreatePayee(name string) ledger.Payee {
	p := ledger.Payee{ID: uuid.NewString(), Name: name}
	c.pendingPayees = append(c.pendingPayees, p)
	return p
}

const transactionColumns = `id, account_id, amount, date, payee_id, imported_payee, imported_date,
	memo, category_id, cleared, flag, check_number, source`

// FindMostRecentTransaction returns the latest committed transaction
// imported for payeeName, or nil.
func (c *Client) FindMostRecentTransaction(ctx context.Context, payeeName string) (*ledger.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE imported_payee = $1 ORDER BY date DESC LIMIT 1`

	var (
		t        ledger.Transaction
		category sql.NullString
		cleared  string
		flag     string
	)
	err := c.db.QueryRowContext(ctx, q, payeeName).Scan(
		&t.ID, &t.AccountID, &t.Amount, &t.Date, &t.PayeeID, &t.ImportedPayee, &t.ImportedDate,
		&t.Memo, &category, &cleared, &flag, &t.CheckNumber, &t.Source,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err, "failed to query previous transaction")
	}

	t.CategoryID = category.String
	t.Cleared = ledger.ClearedState(cleared)
	t.Flag = ledger.Flag(flag)
	return &t, nil
}

// TransactionExists reports whether a committed or pending transaction
// carries the fingerprint.
func (c *Client) TransactionExists(ctx context.Context, fp ledger.Fingerprint) (bool, error) {
	for _, t := range c.pendingTransactions {
		if fp.Matches(t) {
			return true, nil
		}
	}

	q := `SELECT EXISTS (
		SELECT 1 FROM transactions
		WHERE amount = $1 AND account_id = $2 AND date = $3 AND imported_payee = $4 AND source = $5
	)`
	var exists bool
	err := c.db.QueryRowContext(ctx, q,
		fp.Amount, fp.AccountID, ledger.DateOf(fp.Date), fp.ImportedPayee, fp.Source,
	).Scan(&exists)
	if err != nil {
		return false, unavailable(err, "failed to check for duplicate")
	}
	return exists, nil
}

// Enqueue appends a transaction to the pending change set
func (c *Client) Enqueue(t ledger.Transaction) {
	c.pendingTransactions = append(c.pendingTransactions, t)
}

// Discard drops the pending change set without pushing it
func (c *Client) Discard() {
	c.pendingPayees = nil
	c.pendingTransactions = nil
}

// Pending returns the number of unpushed entities
func (c *Client) Pending() int {
	return len(c.pendingPayees) + len(c.pendingTransactions)
}

// Push writes the pending change set in one database transaction. Rows
// skipped on conflict are not counted, so a short count surfaces as a
// *ledger.DeltaMismatchError after commit. The pending set is cleared
// whatever the outcome.
func (c *Client) Push(ctx context.Context, expectedDelta int) error {
	defer func() {
		c.pendingPayees = nil
		c.pendingTransactions = nil
	}()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err, "failed to begin push")
	}
	defer tx.Rollback()

	created := 0
	for _, p := range c.pendingPayees {
		n, err := execCount(ctx, tx,
			`INSERT INTO payees (id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			p.ID, p.Name)
		if err != nil {
			return unavailable(err, "failed to insert payee %s", p.Name)
		}
		created += n
	}

	for _, t := range c.pendingTransactions {
		n, err := execCount(ctx, tx,
			`INSERT INTO transactions (`+transactionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO NOTHING`,
			t.ID, t.AccountID, t.Amount, ledger.DateOf(t.Date), t.PayeeID, t.ImportedPayee,
			ledger.DateOf(t.ImportedDate), t.Memo, nullString(t.CategoryID), string(t.Cleared),
			string(t.Flag), t.CheckNumber, t.Source)
		if err != nil {
			return unavailable(err, "failed to insert transaction %s", t.ID)
		}
		created += n
	}

	if err := tx.Commit(); err != nil {
		return unavailable(err, "failed to commit push")
	}

	if created != expectedDelta {
		return &ledger.DeltaMismatchError{Expected: expectedDelta, Actual: created}
	}
	return nil
}

func execCount(ctx context.Context, tx *sql.Tx, q string, args ...any) (int, error) {
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func unavailable(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %w", fmt.Sprintf(format, args...), errors.ErrUnavailable, err)
}
