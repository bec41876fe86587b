package book

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

// Book is a catalog entry together with the values computed when it is read.
type Book struct {
	ID      int64
	Name    string
	Price   decimal.Decimal
	Author  string
	OwnerID *string
	// Rating is maintained by the rating aggregator and never set from input.
	Rating decimal.NullDecimal

	OwnerName      string
	AnnotatedLikes int
	Readers        []Reader
}

// Reader is a user holding a relation to a book.
type Reader struct {
	FirstName string
	LastName  string
}

// Input carries every writable field of a book.
type Input struct {
	Name   string
	Price  decimal.Decimal
	Author string
}

// Changes carries the fields of a partial update; nil means unchanged.
type Changes struct {
	Name   *string
	Price  *decimal.Decimal
	Author *string
}

// Apply returns b's writable fields with c merged in.
func (c Changes) Apply(b Book) Input {
	in := Input{Name: b.Name, Price: b.Price, Author: b.Author}
	if c.Name != nil {
		in.Name = *c.Name
	}
	if c.Price != nil {
		in.Price = *c.Price
	}
	if c.Author != nil {
		in.Author = *c.Author
	}
	return in
}

// OrderField is one sort key of a list query.
type OrderField struct {
	Field string
	Desc  bool
}

// Query defines filters and ordering for listing books.
type Query struct {
	Price    *decimal.Decimal
	Search   string
	Ordering []OrderField
}

var orderableFields = map[string]bool{
	"price":  true,
	"author": true,
}

// ParseOrdering reads a comma separated list such as "price" or
// "-author,price". Unknown fields are dropped.
func ParseOrdering(s string) []OrderField {
	var out []OrderField
	for _, term := range strings.Split(s, ",") {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		field := strings.TrimPrefix(term, "-")
		if !orderableFields[field] {
			continue
		}
		out = append(out, OrderField{Field: field, Desc: desc})
	}
	return out
}
