package httpx

import (
	"errors"
	"net/http"

	"bookstore/internal/permission"

	"github.com/rs/zerolog"
)

// WritePermissionError renders a policy denial and reports whether err was one.
func WritePermissionError(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, permission.ErrUnauthorized):
		JSONError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Authentication credentials were not provided.", nil)
		return true
	case errors.Is(err, permission.ErrForbidden):
		JSONError(w, r, http.StatusForbidden, CodeForbidden, "You do not have permission to perform this action.", nil)
		return true
	}
	return false
}

// WriteInternalError logs err with the request logger and hides it from the client.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg(msg)
	JSONError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil)
}
