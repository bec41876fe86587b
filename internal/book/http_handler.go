package book

import (
	"errors"
	"net/http"
	"strconv"

	"bookstore/internal/httpx"
	"bookstore/internal/rating"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// Mount registers the book routes on r.
func (h *HTTPHandler) Mount(r chi.Router) {
	r.Route("/book", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Retrieve)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}", h.PartialUpdate)
		r.Delete("/{id}", h.Delete)
	})
}

type bookRequest struct {
	Name   string           `json:"name" validate:"required,max=100"`
	Price  *decimal.Decimal `json:"price" validate:"required,price"`
	Author string           `json:"author" validate:"required,max=100"`
}

type patchBookRequest struct {
	Name   *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Price  *decimal.Decimal `json:"price" validate:"omitempty,price"`
	Author *string          `json:"author" validate:"omitempty,min=1,max=100"`
}

type readerResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type bookResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Price          string           `json:"price"`
	Author         string           `json:"author"`
	AnnotatedLikes int              `json:"annotated_likes"`
	Rating         *string          `json:"rating"`
	OwnerName      string           `json:"owner_name"`
	Readers        []readerResponse `json:"readers"`
}

func toResponse(b Book) bookResponse {
	resp := bookResponse{
		ID:             b.ID,
		Name:           b.Name,
		Price:          b.Price.StringFixed(2),
		Author:         b.Author,
		AnnotatedLikes: b.AnnotatedLikes,
		OwnerName:      b.OwnerName,
		Readers: lo.Map(b.Readers, func(r Reader, _ int) readerResponse {
			return readerResponse{FirstName: r.FirstName, LastName: r.LastName}
		}),
	}
	if b.Rating.Valid {
		resp.Rating = lo.ToPtr(b.Rating.Decimal.StringFixed(rating.Places))
	}
	return resp
}

// List handles GET /book
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := Query{
		Search:   query.Get("search"),
		Ordering: ParseOrdering(query.Get("ordering")),
	}
	if priceStr := query.Get("price"); priceStr != "" {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", []httpx.ErrorDetail{
				{Field: "price", Message: "price must be a number"},
			})
			return
		}
		params.Price = &price
	}

	books, err := h.service.List(r.Context(), params)
	if err != nil {
		httpx.WriteInternalError(w, r, err, "list books")
		return
	}

	httpx.JSONSuccess(w, r, lo.Map(books, func(b Book, _ int) bookResponse { return toResponse(b) }), map[string]interface{}{
		"total": len(books),
	})
}

// Retrieve handles GET /book/{id}
func (h *HTTPHandler) Retrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(b), nil)
}

// Create handles POST /book. The owner is always the caller.
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := httpx.UserFrom(r)
	if err := h.service.policy.Allow(caller, r.Method); err != nil {
		httpx.WritePermissionError(w, r, err)
		return
	}

	var req bookRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	b, err := h.service.Create(r.Context(), caller, Input{Name: req.Name, Price: *req.Price, Author: req.Author})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessCreated(w, r, toResponse(b))
}

// Update handles PUT /book/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	current, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	h.save(w, r, current, Changes{Name: &req.Name, Price: req.Price, Author: &req.Author})
}

// PartialUpdate handles PATCH /book/{id}
func (h *HTTPHandler) PartialUpdate(w http.ResponseWriter, r *http.Request) {
	current, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req patchBookRequest
	if !httpx.DecodeJSON(w, r, &req) {
		return
	}
	if details := httpx.ValidateStruct(req); len(details) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, httpx.CodeValidation, "Invalid input", details)
		return
	}

	h.save(w, r, current, Changes{Name: req.Name, Price: req.Price, Author: req.Author})
}

// Delete handles DELETE /book/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := httpx.UserFrom(r)
	if err := h.service.policy.Allow(caller, r.Method); err != nil {
		httpx.WritePermissionError(w, r, err)
		return
	}
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccessNoContent(w)
}

// authorize runs the permission checks for a write to {id} before the body
// is read, so a caller without rights never sees validation errors.
func (h *HTTPHandler) authorize(w http.ResponseWriter, r *http.Request) (Book, bool) {
	caller := httpx.UserFrom(r)
	if err := h.service.policy.Allow(caller, r.Method); err != nil {
		httpx.WritePermissionError(w, r, err)
		return Book{}, false
	}
	id, ok := bookID(w, r)
	if !ok {
		return Book{}, false
	}
	current, err := h.service.Authorize(r.Context(), caller, id, r.Method)
	if err != nil {
		h.writeError(w, r, err)
		return Book{}, false
	}
	return current, true
}

func (h *HTTPHandler) save(w http.ResponseWriter, r *http.Request, current Book, changes Changes) {
	b, err := h.service.Save(r.Context(), current, changes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, toResponse(b), nil)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.WritePermissionError(w, r, err) {
		return
	}
	if errors.Is(err, ErrNotFound) {
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
		return
	}
	httpx.WriteInternalError(w, r, err, "book request failed")
}

// bookID parses the {id} URL parameter; ids that are not positive integers
// cannot exist and are reported as not found.
func bookID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.JSONError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Book not found", nil)
		return 0, false
	}
	return id, true
}
