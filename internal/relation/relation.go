// Package relation stores what a user did with a book: liked it,
// bookmarked it or rated it.
package relation

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"

	"bookstore/internal/rating"
)

var (
	// ErrBookNotFound is returned when the related book does not exist.
	ErrBookNotFound = errors.New("book not found")
	// ErrInvalidRate is returned for a rate outside 1..5.
	ErrInvalidRate = errors.New("rate must be between 1 and 5")
)

// Relation is the single row linking a user to a book.
type Relation struct {
	ID          int64  `db:"id"`
	UserID      string `db:"user_id"`
	BookID      int64  `db:"book_id"`
	Like        bool   `db:"liked"`
	InBookmarks bool   `db:"in_bookmarks"`
	Rate        *int   `db:"rate"`
}

// OptionalRate distinguishes an absent rate from an explicit null.
type OptionalRate struct {
	Set   bool
	Value *int
}

func (o *OptionalRate) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Patch is a partial update of a relation. Nil fields are left as stored.
type Patch struct {
	Like        *bool        `json:"like"`
	InBookmarks *bool        `json:"in_bookmarks"`
	Rate        OptionalRate `json:"rate"`
}

// UnmarshalJSON rejects an explicit null for like and in_bookmarks; only
// rate may be cleared.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, field := range []string{"like", "in_bookmarks"} {
		if v, ok := raw[field]; ok && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return &json.UnmarshalTypeError{Value: "null", Type: reflect.TypeOf(false), Field: field}
		}
	}
	type plain Patch
	return json.Unmarshal(data, (*plain)(p))
}

// Validate reports ErrInvalidRate for a rate outside the allowed range.
func (p Patch) Validate() error {
	if p.Rate.Value != nil && (*p.Rate.Value < rating.MinRate || *p.Rate.Value > rating.MaxRate) {
		return ErrInvalidRate
	}
	return nil
}

// Apply merges p into r and reports whether the rate changed.
func (p Patch) Apply(r *Relation) bool {
	if p.Like != nil {
		r.Like = *p.Like
	}
	if p.InBookmarks != nil {
		r.InBookmarks = *p.InBookmarks
	}
	if !p.Rate.Set {
		return false
	}
	changed := !sameRate(r.Rate, p.Rate.Value)
	if p.Rate.Value == nil {
		r.Rate = nil
	} else {
		v := *p.Rate.Value
		r.Rate = &v
	}
	return changed
}

func sameRate(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
