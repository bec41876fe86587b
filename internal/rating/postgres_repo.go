package rating

import (
	"context"

	"bookstore/internal/platform/postgres"

	"github.com/shopspring/decimal"
)

// PostgresStore implements Store on a pool or a transaction.
type PostgresStore struct {
	db postgres.Querier
}

func NewPostgresStore(db postgres.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Rates(ctx context.Context, bookID int64) ([]int, error) {
	const query = `
		SELECT rate
		FROM user_book_relations
		WHERE book_id = $1 AND rate IS NOT NULL
		ORDER BY id
	`
	rows, err := s.db.Query(ctx, query, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []int
	for rows.Next() {
		var rate int
		if err := rows.Scan(&rate); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

func (s *PostgresStore) SetRating(ctx context.Context, bookID int64, rating decimal.NullDecimal) error {
	const query = `UPDATE books SET rating = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.db.Exec(ctx, query, bookID, rating)
	return err
}
