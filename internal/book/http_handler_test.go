package book

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookstore/internal/permission"
	"bookstore/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*MockRepository, http.Handler) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockRepo := NewMockRepository(ctrl)
	handler := NewHTTPHandler(NewService(mockRepo, permission.OwnerOrStaffOrReadOnly{}))
	r := chi.NewRouter()
	handler.Mount(r)
	return mockRepo, r
}

func serve(h http.Handler, r *http.Request) testutil.RecordResponse {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return testutil.RecordHTTPResponse(w)
}

func ratedBook() Book {
	b := ownedBook()
	b.OwnerName = testutil.TestOwner.Username
	b.AnnotatedLikes = 3
	b.Rating = decimal.NewNullDecimal(decimal.RequireFromString("4.67"))
	b.Readers = []Reader{{FirstName: "Test", LastName: "Owner"}}
	return b
}

func TestHTTPHandler_List(t *testing.T) {
	mockRepo, router := newTestRouter(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, q Query) ([]Book, error) {
			require.NotNil(t, q.Price)
			assert.True(t, q.Price.Equal(decimal.RequireFromString("55")))
			assert.Equal(t, "Author 1", q.Search)
			assert.Equal(t, []OrderField{{Field: "price", Desc: true}}, q.Ordering)
			return []Book{ratedBook()}, nil
		})

		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book?price=55&search=Author+1&ordering=-price", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		items := resp.DataList()
		require.Len(t, items, 1)
		assert.Equal(t, float64(1), items[0]["id"])
		assert.Equal(t, "25.00", items[0]["price"])
		assert.Equal(t, "4.67", items[0]["rating"])
		assert.Equal(t, float64(3), items[0]["annotated_likes"])
		assert.Equal(t, "testuser", items[0]["owner_name"])
		assert.Equal(t, []interface{}{map[string]interface{}{"first_name": "Test", "last_name": "Owner"}}, items[0]["readers"])
	})

	t.Run("unrated book without owner", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return([]Book{{ID: 2, Name: "Test Book 2", Price: decimal.RequireFromString("55"), Author: "Author 5", Readers: []Reader{}}}, nil)

		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book", nil))

		require.Len(t, resp.DataList(), 1)
		item := resp.DataList()[0]
		assert.Nil(t, item["rating"])
		assert.Contains(t, item, "rating")
		assert.Equal(t, "", item["owner_name"])
		assert.Equal(t, []interface{}{}, item["readers"])
	})

	t.Run("invalid price", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book?price=cheap", nil))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "VALIDATION_ERROR", resp.ErrorCode())
	})

	t.Run("error", func(t *testing.T) {
		mockRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)

		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}

func TestHTTPHandler_Retrieve(t *testing.T) {
	mockRepo, router := newTestRouter(t)

	t.Run("success", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ratedBook(), nil)

		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book/1", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Test Book 1", resp.Data()["name"])
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(99)).Return(Book{}, ErrNotFound)

		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book/99", nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("non numeric id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodGet, "/book/abc", nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	mockRepo, router := newTestRouter(t)

	t.Run("owner forced to caller", func(t *testing.T) {
		body := map[string]interface{}{"name": "Programming in Go", "price": "150.00", "author": "Author 1", "owner": testutil.TestStaff.ID}
		mockRepo.EXPECT().Create(gomock.Any(), gomock.Any(), testutil.TestOwner.ID).
			DoAndReturn(func(_ context.Context, in Input, _ string) (int64, error) {
				assert.Equal(t, "Programming in Go", in.Name)
				assert.True(t, in.Price.Equal(decimal.RequireFromString("150")))
				return 4, nil
			})
		created := Book{ID: 4, Name: "Programming in Go", Price: decimal.RequireFromString("150"), Author: "Author 1", OwnerID: &testutil.TestOwner.ID, OwnerName: "testuser", Readers: []Reader{}}
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(4)).Return(created, nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPost, "/book", body, &testutil.TestOwner))

		assert.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "testuser", resp.Data()["owner_name"])
		assert.Equal(t, "150.00", resp.Data()["price"])
	})

	t.Run("anonymous", func(t *testing.T) {
		body := map[string]interface{}{"name": "Programming in Go", "price": "150.00", "author": "Author 1"}

		resp := serve(router, testutil.NewRequest(http.MethodPost, "/book", body))

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("validation", func(t *testing.T) {
		body := map[string]interface{}{"name": "", "price": "1.999"}

		resp := serve(router, testutil.NewRequestAs(http.MethodPost, "/book", body, &testutil.TestOwner))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "VALIDATION_ERROR", resp.ErrorCode())
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := serve(router, testutil.NewRequestAs(http.MethodPost, "/book", "{", &testutil.TestOwner))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestHTTPHandler_Update(t *testing.T) {
	mockRepo, router := newTestRouter(t)
	body := map[string]interface{}{"name": "Test Book 1", "price": 575, "author": "Author 1"}

	t.Run("owner", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).Return(nil)
		updated := ownedBook()
		updated.Price = decimal.RequireFromString("575")
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(updated, nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPut, "/book/1", body, &testutil.TestOwner))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "575.00", resp.Data()["price"])
	})

	t.Run("not owner", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPut, "/book/1", body, &testutil.TestStranger))

		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, "FORBIDDEN", resp.ErrorCode())
	})

	t.Run("not owner but staff", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).Return(nil)
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPut, "/book/1", body, &testutil.TestStaff))

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("put requires every field", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPut, "/book/1", map[string]interface{}{"price": 10}, &testutil.TestOwner))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("not owner with invalid body is still forbidden", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPut, "/book/1", map[string]interface{}{"price": 10}, &testutil.TestStranger))

		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, "FORBIDDEN", resp.ErrorCode())
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/book/1", body))

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("anonymous with malformed id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodPut, "/book/abc", body))

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestHTTPHandler_PartialUpdate(t *testing.T) {
	mockRepo, router := newTestRouter(t)

	t.Run("owner", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)
		mockRepo.EXPECT().Update(gomock.Any(), int64(1), gomock.Any()).DoAndReturn(func(_ context.Context, _ int64, in Input) error {
			assert.Equal(t, "Renamed", in.Name)
			assert.Equal(t, "Author 1", in.Author)
			assert.True(t, in.Price.Equal(decimal.RequireFromString("25")))
			return nil
		})
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPatch, "/book/1", map[string]interface{}{"name": "Renamed", "rating": "5.00"}, &testutil.TestOwner))

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("owner with invalid body", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPatch, "/book/1", map[string]interface{}{"name": ""}, &testutil.TestOwner))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "VALIDATION_ERROR", resp.ErrorCode())
	})

	t.Run("not owner with invalid body is still forbidden", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodPatch, "/book/1", map[string]interface{}{"name": ""}, &testutil.TestStranger))

		assert.Equal(t, http.StatusForbidden, resp.Code)
		assert.Equal(t, "FORBIDDEN", resp.ErrorCode())
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	mockRepo, router := newTestRouter(t)

	t.Run("owner", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)
		mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodDelete, "/book/1", nil, &testutil.TestOwner))

		assert.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("not owner", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodDelete, "/book/1", nil, &testutil.TestStranger))

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("staff", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(ownedBook(), nil)
		mockRepo.EXPECT().Delete(gomock.Any(), int64(1)).Return(nil)

		resp := serve(router, testutil.NewRequestAs(http.MethodDelete, "/book/1", nil, &testutil.TestStaff))

		assert.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo.EXPECT().GetByID(gomock.Any(), int64(42)).Return(Book{}, ErrNotFound)

		resp := serve(router, testutil.NewRequestAs(http.MethodDelete, "/book/42", nil, &testutil.TestOwner))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("anonymous with malformed id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequest(http.MethodDelete, "/book/abc", nil))

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "UNAUTHORIZED", resp.ErrorCode())
	})

	t.Run("malformed id", func(t *testing.T) {
		resp := serve(router, testutil.NewRequestAs(http.MethodDelete, "/book/abc", nil, &testutil.TestOwner))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
