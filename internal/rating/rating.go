// Package rating keeps books.rating equal to the mean of the rates its
// readers gave it.
package rating

import (
	"context"
	"fmt"

	"bookstore/internal/metrics"

	"github.com/shopspring/decimal"
)

// MinRate and MaxRate bound a single relation rate.
const (
	MinRate = 1
	MaxRate = 5
)

// Places is the number of fractional digits a stored rating keeps.
const Places = 2

//go:generate mockgen -source=rating.go -destination=mock_rating.go -package=rating

// Store reads relation rates and writes the derived book rating. It is
// bound to whatever transaction the caller is running in.
type Store interface {
	Rates(ctx context.Context, bookID int64) ([]int, error)
	SetRating(ctx context.Context, bookID int64, rating decimal.NullDecimal) error
}

// Average returns the arithmetic mean of rates rounded half away from zero
// to two places, or an invalid NullDecimal when rates is empty.
func Average(rates []int) decimal.NullDecimal {
	if len(rates) == 0 {
		return decimal.NullDecimal{}
	}
	var sum int64
	for _, r := range rates {
		sum += int64(r)
	}
	avg := decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(rates))), Places)
	return decimal.NewNullDecimal(avg)
}

// Aggregator recomputes a book's stored rating.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Recompute reads every non-null rate of bookID through store and
// persists their average. Calling it again without relation changes
// writes the same value.
func (a *Aggregator) Recompute(ctx context.Context, store Store, bookID int64) (decimal.NullDecimal, error) {
	rates, err := store.Rates(ctx, bookID)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("load rates for book %d: %w", bookID, err)
	}
	avg := Average(rates)
	if err := store.SetRating(ctx, bookID, avg); err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("store rating for book %d: %w", bookID, err)
	}
	metrics.RatingRecomputes.Inc()
	return avg, nil
}
