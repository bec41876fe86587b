package user

import "errors"

// ErrNotFound is returned when no user has the requested id.
var ErrNotFound = errors.New("user not found")

// User is an identity mirrored from the identity provider. The catalog
// never writes users.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}
