package relation

import (
	"errors"
	"net/http"
	"strconv"

	"bookstore/internal/httpx"
	"bookstore/internal/permission"

	"github.com/go-chi/chi/v5"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Mount registers the relation routes on r.
func (h *HTTPHandler) Mount(r chi.Router) {
	r.Route("/book_relation", func(r chi.Router) {
		r.Get("/{book}", h.Retrieve)
		r.Patch("/{book}", h.Update)
	})
}

type relationResponse struct {
	Book        int64 `json:"book"`
	Like        bool  `json:"like"`
	InBookmarks bool  `json:"in_bookmarks"`
	Rate        *int  `json:"rate"`
}

func toResponse(rel Relation) relationResponse {
	return relationResponse{
		Book:        rel.BookID,
		Like:        rel.Like,
		InBookmarks: rel.InBookmarks,
		Rate:        rel.Rate,
	}
}

// Retrieve handles GET /book_relation/{book}
func (h *HTTPHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	bookID, ok := parseBookID(w, r)
	if !ok {
		return
	}
	rel, err := h.service.Get(r.Context(), httpx.UserFrom(r), bookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(rel), nil)
}

// Update handles PATCH /book_relation/{book}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller := httpx.UserFrom(r)
	if caller == nil {
		writeError(w, r, permission.ErrUnauthorized)
		return
	}
	bookID, ok := parseBookID(w, r)
	if !ok {
		return
	}

	var patch Patch
	if !httpx.DecodeJSON(w, r, &patch) {
		return
	}

	rel, err := h.service.Upsert(r.Context(), caller, bookID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(rel), nil)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.WritePermissionError(w, r, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidRate):
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", []httpx.ErrorDetail{
			{Field: "rate", Message: err.Error()},
		})
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
	default:
		httpx.WriteInternalError(w, r, err, "relation request failed")
	}
}

func parseBookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "book"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
		return 0, false
	}
	return id, true
}
