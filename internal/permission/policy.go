// Package permission decides whether a caller may mutate a book.
package permission

import (
	"errors"
	"net/http"

	"bookstore/internal/user"
)

var (
	// ErrUnauthorized is returned for unsafe methods without a caller.
	ErrUnauthorized = errors.New("authentication credentials were not provided")
	// ErrForbidden is returned when an authenticated caller is neither owner nor staff.
	ErrForbidden = errors.New("you do not have permission to perform this action")
)

// Policy is consulted in two steps, the way a request is served: Allow
// before the resource is loaded, AllowObject once its owner is known.
// A nil caller means the request is anonymous.
type Policy interface {
	Allow(caller *user.User, method string) error
	AllowObject(caller *user.User, ownerID *string, method string) error
}

// CanWrite runs both checks of p.
func CanWrite(p Policy, caller *user.User, ownerID *string, method string) error {
	if err := p.Allow(caller, method); err != nil {
		return err
	}
	return p.AllowObject(caller, ownerID, method)
}

// OwnerOrStaffOrReadOnly lets anyone read, any authenticated caller
// create, and only the owner or staff modify or delete.
type OwnerOrStaffOrReadOnly struct{}

func (OwnerOrStaffOrReadOnly) Allow(caller *user.User, method string) error {
	if IsSafeMethod(method) {
		return nil
	}
	if caller == nil {
		return ErrUnauthorized
	}
	return nil
}

func (p OwnerOrStaffOrReadOnly) AllowObject(caller *user.User, ownerID *string, method string) error {
	if IsSafeMethod(method) {
		return nil
	}
	if caller == nil {
		return ErrUnauthorized
	}
	if method == http.MethodPost {
		// ownership is assigned after creation
		return nil
	}
	if caller.IsStaff {
		return nil
	}
	if ownerID != nil && *ownerID == caller.ID {
		return nil
	}
	return ErrForbidden
}

// IsSafeMethod reports whether method only reads.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
