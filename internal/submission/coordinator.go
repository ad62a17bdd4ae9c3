package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/common/logger"
	"github.com/baely/txnsync/internal/ledger"
	"github.com/baely/txnsync/internal/provider"
)

const defaultChunkSize = 20

// Config holds the coordinator settings
type Config struct {
	// ChunkSize bounds the drafts pushed in one ledger sync
	ChunkSize int
	Logger    *slog.Logger
	// Now stamps imported dates
	Now func() time.Time
}

// DefaultConfig returns the default coordinator configuration
func DefaultConfig() *Config {
	return &Config{
		ChunkSize: defaultChunkSize,
		Logger:    slog.Default(),
		Now:       time.Now,
	}
}

// ChunkFailure records a chunk whose push created fewer entities than
// expected.
type ChunkFailure struct {
	Chunk    int `json:"chunk"`
	Expected int `json:"expected"`
	Actual   int `json:"actual"`
}

// Outcome is the result of a successful submission. Created and
// PayeesCreated count only chunks whose push matched its delta; a chunk
// listed in Failures may still have committed some of its entities.
type Outcome struct {
	Message       string            `json:"message"`
	Duplicates    []json.RawMessage `json:"duplicates"`
	Created       int               `json:"created"`
	PayeesCreated int               `json:"payees_created"`
	Failures      []ChunkFailure    `json:"failures,omitempty"`
}

// StatusCode is 201 when any transaction was committed, 200 otherwise
func (o Outcome) StatusCode() int {
	if o.Created > 0 {
		return http.StatusCreated
	}
	return http.StatusOK
}

// Coordinator drives a normalized batch through payee resolution,
// duplicate detection and push. Submit calls must not overlap; the webhook
// service runs them on a single worker.
type Coordinator struct {
	ledger     Ledger
	normalizer *provider.Normalizer
	cache      *ledger.Cache
	resolver   *Resolver
	detector   *Detector

	chunkSize int
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a coordinator with the default configuration
func New(l Ledger, n *provider.Normalizer) *Coordinator {
	return NewWithConfig(l, n, DefaultConfig())
}

// NewWithConfig creates a coordinator with a custom configuration
func NewWithConfig(l Ledger, n *provider.Normalizer, cfg *Config) *Coordinator {
	defaults := DefaultConfig()
	if cfg == nil {
		cfg = defaults
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = defaults.Logger
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}

	cache := ledger.NewCache()
	return &Coordinator{
		ledger:     l,
		normalizer: n,
		cache:      cache,
		resolver:   NewResolver(l, cache, cfg.Logger),
		detector:   NewDetector(l),
		chunkSize:  cfg.ChunkSize,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Submit normalizes wh and pushes its drafts to the ledger in chunks.
// Every failure is returned as an *Error.
func (c *Coordinator) Submit(ctx context.Context, wh provider.Webhook) (Outcome, error) {
	log := logger.WithContext(ctx, c.logger).With("provider", string(wh.Provider()))

	batch, err := c.normalizer.Normalize(ctx, wh)
	if err != nil {
		log.Info("Rejected webhook", "error", err)
		return Outcome{}, fromProvider(err)
	}

	outcome := Outcome{
		Message:    "Transaction(s) processed",
		Duplicates: []json.RawMessage{},
	}
	if batch.Notice != "" {
		log.Info(batch.Notice)
		outcome.Message = batch.Notice
		return outcome, nil
	}
	if len(batch.Drafts) == 0 {
		return outcome, nil
	}

	expected, actual := 0, 0
	for i, drafts := range chunk(batch.Drafts, c.chunkSize) {
		res, err := c.processChunk(ctx, log.With("chunk", i), drafts)
		if err != nil {
			if outcome.Created > 0 {
				log.Warn("Submission stopped after partial commit", "created", outcome.Created, "error", err)
			}
			return Outcome{}, err
		}

		outcome.Duplicates = append(outcome.Duplicates, res.duplicates...)
		if res.failure != nil {
			res.failure.Chunk = i
			outcome.Failures = append(outcome.Failures, *res.failure)
			expected += res.failure.Expected
			actual += res.failure.Actual
			continue
		}
		outcome.Created += res.created
		outcome.PayeesCreated += res.payees
	}

	if len(outcome.Failures) > 0 && outcome.Created == 0 {
		return Outcome{}, &Error{
			Kind:    KindPushMismatch,
			Message: fmt.Sprintf("Ledger created %d of %d expected entities", actual, expected),
			Err:     &ledger.DeltaMismatchError{Expected: expected, Actual: actual},
		}
	}

	if batch.Single {
		switch {
		case len(outcome.Duplicates) > 0:
			outcome.Message = "Tried to add a duplicate transaction."
		case outcome.Created > 0:
			outcome.Message = "Transaction created successfully."
		}
	}

	log.Info("Submission complete",
		"created", outcome.Created,
		"payees_created", outcome.PayeesCreated,
		"duplicates", len(outcome.Duplicates),
		"failures", len(outcome.Failures))
	return outcome, nil
}

type chunkResult struct {
	created    int
	payees     int
	duplicates []json.RawMessage
	failure    *ChunkFailure
}

func (c *Coordinator) processChunk(ctx context.Context, log *slog.Logger, drafts []provider.Draft) (chunkResult, error) {
	if err := c.ledger.Sync(ctx); err != nil {
		return chunkResult{}, unavailable(err, "Failed to sync ledger")
	}
	c.cache.Rebuild(c.ledger)

	accounts := make([]ledger.Account, len(drafts))
	for i, d := range drafts {
		account, ok := c.cache.Account(d.AccountName)
		if !ok {
			return chunkResult{}, &Error{
				Kind:    KindAccountNotFound,
				Message: fmt.Sprintf("Account %s was not found", d.AccountName),
			}
		}
		accounts[i] = account
	}

	var (
		delta  Delta
		result chunkResult
	)
	for i, d := range drafts {
		res, err := c.resolver.Resolve(ctx, d.PayeeName, d.InferCategory, &delta)
		if err != nil {
			c.ledger.Discard()
			return chunkResult{}, unavailable(err, "Failed to resolve payee")
		}
		if res.Created {
			result.payees++
		}

		t := c.transaction(d, accounts[i], res)
		duplicate, err := c.detector.IsDuplicate(ctx, t)
		if err != nil {
			c.ledger.Discard()
			return chunkResult{}, unavailable(err, "Failed to check for duplicate transaction")
		}
		if duplicate {
			log.Info("Skipping duplicate transaction", "payee", d.PayeeName, "amount", d.Amount.String())
			result.duplicates = append(result.duplicates, d.Raw)
			continue
		}

		c.ledger.Enqueue(t)
		delta.Add(1)
		result.created++
	}

	if c.ledger.Pending() == 0 {
		return result, nil
	}

	err := c.ledger.Push(ctx, delta.Expected())
	var mismatch *ledger.DeltaMismatchError
	if errors.As(err, &mismatch) {
		log.Error("Ledger push created fewer entities than expected",
			"expected", mismatch.Expected,
			"actual", mismatch.Actual)
		result.failure = &ChunkFailure{Expected: mismatch.Expected, Actual: mismatch.Actual}
		return result, nil
	}
	if err != nil {
		c.ledger.Discard()
		return chunkResult{}, unavailable(err, "Failed to push to ledger")
	}
	return result, nil
}

func (c *Coordinator) transaction(d provider.Draft, account ledger.Account, res Resolution) ledger.Transaction {
	source := d.Source
	if source == "" {
		source = ledger.SourceImported
	}
	return ledger.Transaction{
		ID:            uuid.NewString(),
		AccountID:     account.ID,
		Amount:        d.Amount,
		Date:          ledger.DateOf(d.OccurredAt),
		PayeeID:       res.PayeeID,
		ImportedPayee: d.PayeeName,
		ImportedDate:  ledger.DateOf(c.now()),
		Memo:          d.Memo,
		CategoryID:    res.CategoryID,
		Cleared:       d.Cleared,
		Flag:          d.Flag,
		CheckNumber:   d.Reference,
		Source:        source,
	}
}

func chunk(drafts []provider.Draft, size int) [][]provider.Draft {
	var chunks [][]provider.Draft
	for size < len(drafts) {
		drafts, chunks = drafts[size:], append(chunks, drafts[:size:size])
	}
	return append(chunks, drafts)
}

func fromProvider(err error) error {
	var pe *provider.Error
	if !errors.As(err, &pe) {
		return &Error{Kind: KindValidation, Message: err.Error(), Err: err}
	}

	kind := KindValidation
	switch pe.Kind {
	case provider.KindEncoding:
		kind = KindEncoding
	case provider.KindUpstream:
		kind = KindUnavailable
	}
	return &Error{Kind: kind, Message: pe.Message, Err: err}
}

func unavailable(err error, message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: err}
}
