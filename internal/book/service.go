package book

import (
	"context"
	"net/http"

	"bookstore/internal/permission"
	"bookstore/internal/user"
)

// Service provides book-related business logic.
type Service struct {
	repo   Repository
	policy permission.Policy
}

// NewService creates a new book service guarded by policy.
func NewService(repo Repository, policy permission.Policy) *Service {
	return &Service{repo: repo, policy: policy}
}

// List returns the books matching q, each with its like count.
func (s *Service) List(ctx context.Context, q Query) ([]Book, error) {
	return s.repo.List(ctx, q)
}

// Get returns a single book.
func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores a new book owned by caller.
func (s *Service) Create(ctx context.Context, caller *user.User, in Input) (Book, error) {
	if err := permission.CanWrite(s.policy, caller, nil, http.MethodPost); err != nil {
		return Book{}, err
	}
	id, err := s.repo.Create(ctx, in, caller.ID)
	if err != nil {
		return Book{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Authorize loads book id and checks that caller may modify it with
// method. The returned book is the state the changes will be merged into.
func (s *Service) Authorize(ctx context.Context, caller *user.User, id int64, method string) (Book, error) {
	if err := s.policy.Allow(caller, method); err != nil {
		return Book{}, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err := s.policy.AllowObject(caller, current.OwnerID, method); err != nil {
		return Book{}, err
	}
	return current, nil
}

// Update applies changes to book id. method is the HTTP method the caller
// used (PUT or PATCH).
func (s *Service) Update(ctx context.Context, caller *user.User, id int64, changes Changes, method string) (Book, error) {
	current, err := s.Authorize(ctx, caller, id, method)
	if err != nil {
		return Book{}, err
	}
	return s.Save(ctx, current, changes)
}

// Save merges changes into current, a book returned by Authorize.
func (s *Service) Save(ctx context.Context, current Book, changes Changes) (Book, error) {
	if err := s.repo.Update(ctx, current.ID, changes.Apply(current)); err != nil {
		return Book{}, err
	}
	return s.repo.GetByID(ctx, current.ID)
}

// Delete removes book id together with its relations.
func (s *Service) Delete(ctx context.Context, caller *user.User, id int64) error {
	if _, err := s.Authorize(ctx, caller, id, http.MethodDelete); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
