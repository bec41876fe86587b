package relation

import (
	"context"

	"bookstore/internal/rating"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=relation

// Repository defines the contract for relation storage.
type Repository interface {
	// Get returns the relation of userID to bookID, or a zero relation
	// when none is stored. ErrBookNotFound when the book does not exist.
	Get(ctx context.Context, userID string, bookID int64) (Relation, error)
	// WithTx runs fn in one transaction, committed only when fn returns nil.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository is the view of the store inside a transaction.
type TxRepository interface {
	rating.Store
	// LockBook takes a row lock on the book until the transaction ends.
	LockBook(ctx context.Context, bookID int64) error
	Find(ctx context.Context, userID string, bookID int64) (Relation, bool, error)
	Insert(ctx context.Context, r *Relation) error
	Update(ctx context.Context, r Relation) error
}
