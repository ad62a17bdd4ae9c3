package submission

import (
	"context"
	"log/slog"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

// Resolution is the outcome of resolving a payee name
type Resolution struct {
	PayeeID string
	// CategoryID is a default suggested by the payee's history, or empty
	CategoryID string
	Created    bool
}

// Resolver maps payee names to ledger payees, creating them on demand
type Resolver struct {
	ledger Ledger
	cache  *ledger.Cache
	logger *slog.Logger
}

// NewResolver returns a Resolver reading and updating cache
func NewResolver(l Ledger, cache *ledger.Cache, logger *slog.Logger) *Resolver {
	return &Resolver{ledger: l, cache: cache, logger: logger}
}

// Resolve looks name up by exact match. A miss creates the payee in the
// ledger's pending set, refreshes the cache and adds one to delta. A hit
// suggests the category of the payee's most recent transaction when
// inferCategory is set.
func (r *Resolver) Resolve(ctx context.Context, name string, inferCategory bool, delta *Delta) (Resolution, error) {
	if payee, ok := r.cache.Payee(name); ok {
		r.logger.Debug("Payee exists", "payee", name)
		res := Resolution{PayeeID: payee.ID}
		if inferCategory {
			categoryID, err := r.defaultCategory(ctx, name)
			if err != nil {
				return Resolution{}, err
			}
			res.CategoryID = categoryID
		}
		return res, nil
	}

	r.logger.Debug("Payee does not exist, creating", "payee", name)
	payee := r.ledger.CreatePayee(name)
	r.cache.RebuildPayees(r.ledger)
	if _, ok := r.cache.Payee(name); !ok {
		return Resolution{}, errors.Wrap(errors.ErrUnavailable, "created payee %q missing from ledger", name)
	}
	delta.Add(1)

	return Resolution{PayeeID: payee.ID, Created: true}, nil
}

func (r *Resolver) defaultCategory(ctx context.Context, name string) (string, error) {
	previous, err := r.ledger.FindMostRecentTransaction(ctx, name)
	if err != nil {
		return "", errors.Wrap(err, "failed to look up history for %q", name)
	}
	if previous == nil {
		r.logger.Debug("No previous transaction for payee", "payee", name)
		return "", nil
	}
	if previous.CategoryID == "" {
		r.logger.Debug("Previous transaction has no category", "payee", name)
		return "", nil
	}

	category, ok := r.cache.Category(previous.CategoryID)
	if !ok {
		r.logger.Debug("Previous category is not in the ledger", "payee", name, "category_id", previous.CategoryID)
		return "", nil
	}
	if category.Name == ledger.SplitCategoryName {
		r.logger.Debug("Split category found, not suggesting a default", "payee", name)
		return "", nil
	}

	r.logger.Debug("Using previous category as default", "payee", name, "category", category.Name)
	return category.ID, nil
}
