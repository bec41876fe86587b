package relation

import (
	"context"
	"fmt"

	"bookstore/internal/permission"
	"bookstore/internal/rating"
	"bookstore/internal/user"

	"github.com/rs/zerolog"
)

// Service provides relation-related business logic.
type Service struct {
	repo       Repository
	aggregator *rating.Aggregator
}

// NewService creates a new relation service.
func NewService(repo Repository, aggregator *rating.Aggregator) *Service {
	return &Service{repo: repo, aggregator: aggregator}
}

// Get returns the caller's relation to bookID, with defaults when the
// caller never touched the book.
func (s *Service) Get(ctx context.Context, caller *user.User, bookID int64) (Relation, error) {
	if caller == nil {
		return Relation{}, permission.ErrUnauthorized
	}
	return s.repo.Get(ctx, caller.ID, bookID)
}

// Upsert creates the caller's relation to bookID if needed and applies
// patch to it. The book rating is recomputed in the same transaction when
// the relation is new or its rate changed.
func (s *Service) Upsert(ctx context.Context, caller *user.User, bookID int64, patch Patch) (Relation, error) {
	if caller == nil {
		return Relation{}, permission.ErrUnauthorized
	}
	if err := patch.Validate(); err != nil {
		return Relation{}, err
	}

	var out Relation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockBook(ctx, bookID); err != nil {
			return err
		}
		rel, found, err := tx.Find(ctx, caller.ID, bookID)
		if err != nil {
			return fmt.Errorf("find relation: %w", err)
		}
		if !found {
			rel = Relation{UserID: caller.ID, BookID: bookID}
		}

		rateChanged := patch.Apply(&rel)
		if found {
			err = tx.Update(ctx, rel)
		} else {
			err = tx.Insert(ctx, &rel)
		}
		if err != nil {
			return fmt.Errorf("save relation: %w", err)
		}

		if !found || rateChanged {
			avg, err := s.aggregator.Recompute(ctx, tx, bookID)
			if err != nil {
				return err
			}
			zerolog.Ctx(ctx).Debug().
				Int64("book_id", bookID).
				Str("rating", avg.Decimal.StringFixed(rating.Places)).
				Bool("rated", avg.Valid).
				Msg("book rating recomputed")
		}
		out = rel
		return nil
	})
	if err != nil {
		return Relation{}, err
	}
	return out, nil
}
