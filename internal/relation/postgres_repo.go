package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookstore/internal/rating"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) Get(ctx context.Context, userID string, bookID int64) (Relation, error) {
	const query = `
		SELECT b.id, r.id, r.liked, r.in_bookmarks, r.rate
		FROM books b
		LEFT JOIN user_book_relations r ON r.book_id = b.id AND r.user_id = $1
		WHERE b.id = $2
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rel := Relation{UserID: userID}
	var (
		relID       *int64
		liked       *bool
		inBookmarks *bool
	)
	err := r.db.QueryRow(timeoutCtx, query, userID, bookID).Scan(&rel.BookID, &relID, &liked, &inBookmarks, &rel.Rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return Relation{}, ErrBookNotFound
	}
	if err != nil {
		return Relation{}, fmt.Errorf("get relation: %w", err)
	}
	if relID != nil {
		rel.ID = *relID
		rel.Like = *liked
		rel.InBookmarks = *inBookmarks
	}
	return rel, nil
}

func (r *PostgresRepo) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return pgx.BeginFunc(timeoutCtx, r.db, func(tx pgx.Tx) error {
		return fn(timeoutCtx, newTxRepo(tx))
	})
}

type txRepo struct {
	*rating.PostgresStore
	tx pgx.Tx
}

func newTxRepo(tx pgx.Tx) *txRepo {
	return &txRepo{PostgresStore: rating.NewPostgresStore(tx), tx: tx}
}

func (t *txRepo) LockBook(ctx context.Context, bookID int64) error {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, bookID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBookNotFound
	}
	if err != nil {
		return fmt.Errorf("lock book %d: %w", bookID, err)
	}
	return nil
}

func (t *txRepo) Find(ctx context.Context, userID string, bookID int64) (Relation, bool, error) {
	sqlStr, args, err := psql.
		Select("id", "user_id", "book_id", "liked", "in_bookmarks", "rate").
		From("user_book_relations").
		Where(sq.Eq{"user_id": userID, "book_id": bookID}).
		ToSql()
	if err != nil {
		return Relation{}, false, err
	}

	rows, err := t.tx.Query(ctx, sqlStr, args...)
	if err != nil {
		return Relation{}, false, err
	}
	rel, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Relation])
	if errors.Is(err, pgx.ErrNoRows) {
		return Relation{}, false, nil
	}
	if err != nil {
		return Relation{}, false, err
	}
	return rel, true, nil
}

func (t *txRepo) Insert(ctx context.Context, r *Relation) error {
	sqlStr, args, err := psql.
		Insert("user_book_relations").
		Columns("user_id", "book_id", "liked", "in_bookmarks", "rate").
		Values(r.UserID, r.BookID, r.Like, r.InBookmarks, r.Rate).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	return t.tx.QueryRow(ctx, sqlStr, args...).Scan(&r.ID)
}

func (t *txRepo) Update(ctx context.Context, r Relation) error {
	sqlStr, args, err := psql.
		Update("user_book_relations").
		Set("liked", r.Like).
		Set("in_bookmarks", r.InBookmarks).
		Set("rate", r.Rate).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, sqlStr, args...)
	return err
}

var (
	_ Repository   = (*PostgresRepo)(nil)
	_ TxRepository = (*txRepo)(nil)
)
