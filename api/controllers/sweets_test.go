package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/internal/sweets"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
)

type stubSweetService struct {
	page, limit int
	filters     sweets.SearchFilters
	created     sweets.CreateSweetInput
	updated     sweets.UpdateSweetInput
	actor       uuid.UUID
	deleted     uuid.UUID
	err         error
}

func (s *stubSweetService) List(_ context.Context, page, limit int) (*sweets.ListResult, error) {
	s.page, s.limit = page, limit
	return &sweets.ListResult{Sweets: []*sweets.SweetDTO{}}, s.err
}

func (s *stubSweetService) Get(_ context.Context, id uuid.UUID) (*sweets.SweetDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &sweets.SweetDTO{ID: id}, nil
}

func (s *stubSweetService) Search(_ context.Context, filters sweets.SearchFilters) ([]*sweets.SweetDTO, error) {
	s.filters = filters
	return []*sweets.SweetDTO{}, s.err
}

func (s *stubSweetService) Create(_ context.Context, actorID uuid.UUID, input sweets.CreateSweetInput) (*sweets.SweetDTO, error) {
	s.actor, s.created = actorID, input
	if s.err != nil {
		return nil, s.err
	}
	return &sweets.SweetDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (s *stubSweetService) Update(_ context.Context, actorID, id uuid.UUID, input sweets.UpdateSweetInput) (*sweets.SweetDTO, error) {
	s.actor, s.updated = actorID, input
	if s.err != nil {
		return nil, s.err
	}
	return &sweets.SweetDTO{ID: id}, nil
}

func (s *stubSweetService) Delete(_ context.Context, actorID, id uuid.UUID) error {
	s.actor, s.deleted = actorID, id
	return s.err
}

var testPaging = config.PaginationConfig{DefaultLimit: 10, MaxLimit: 100}

func TestSweetListDefaultsAndBounds(t *testing.T) {
	svc := &stubSweetService{}
	rec := serve(SweetList(svc, testPaging, testLogger()), newRequest(http.MethodGet, "/api/sweets", "", uuid.Nil, nil))
	if rec.Code != http.StatusOK || decodeEnvelope(t, rec).Message != "Sweets fetched successfully" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if svc.page != 1 || svc.limit != 10 {
		t.Fatalf("expected defaults 1/10, got %d/%d", svc.page, svc.limit)
	}

	rec = serve(SweetList(svc, testPaging, testLogger()), newRequest(http.MethodGet, "/api/sweets?page=2&limit=5", "", uuid.Nil, nil))
	if rec.Code != http.StatusOK || svc.page != 2 || svc.limit != 5 {
		t.Fatalf("unexpected paging %d %d/%d", rec.Code, svc.page, svc.limit)
	}

	for _, q := range []string{"?page=0", "?limit=101", "?page=abc"} {
		rec = serve(SweetList(svc, testPaging, testLogger()), newRequest(http.MethodGet, "/api/sweets"+q, "", uuid.Nil, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestSweetSearchForwardsFilters(t *testing.T) {
	svc := &stubSweetService{}
	req := newRequest(http.MethodGet, "/api/sweets/search?query=choc&category=Candy&minPrice=1.5&maxPrice=6", "", uuid.Nil, nil)
	rec := serve(SweetSearch(svc, testLogger()), req)

	if rec.Code != http.StatusOK || decodeEnvelope(t, rec).Message != "Search results" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if svc.filters.Query != "choc" || svc.filters.Category != "Candy" {
		t.Fatalf("unexpected filters %+v", svc.filters)
	}
	if svc.filters.MinPrice == nil || svc.filters.MinPrice.String() != "1.5" || svc.filters.MaxPrice == nil || svc.filters.MaxPrice.String() != "6" {
		t.Fatalf("unexpected price bounds %+v", svc.filters)
	}

	rec = serve(SweetSearch(svc, testLogger()), newRequest(http.MethodGet, "/api/sweets/search?minPrice=cheap", "", uuid.Nil, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSweetGetMalformedIDIsNotFound(t *testing.T) {
	rec := serve(SweetGet(&stubSweetService{}, testLogger()), newRequest(http.MethodGet, "/api/sweets/nope", "", uuid.Nil, map[string]string{"id": "nope"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Sweet not found" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestSweetCreate(t *testing.T) {
	svc := &stubSweetService{}
	admin := uuid.New()
	body := `{"name":"Fudge","price":5.99,"stock":50,"category":"Chocolate","imageUrl":"http://img"}`
	rec := serve(SweetCreate(svc, testLogger()), newRequest(http.MethodPost, "/api/sweets", body, admin, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if env := decodeEnvelope(t, rec); env.Message != "Sweet created successfully" {
		t.Fatalf("unexpected message %q", env.Message)
	}
	if svc.actor != admin || svc.created.Name != "Fudge" || svc.created.Stock != 50 || svc.created.Price.String() != "5.99" {
		t.Fatalf("unexpected input %+v", svc.created)
	}
	if svc.created.ImageURL == nil || *svc.created.ImageURL != "http://img" {
		t.Fatalf("image url not forwarded")
	}
}

func TestSweetCreateRequiresCaller(t *testing.T) {
	rec := serve(SweetCreate(&stubSweetService{}, testLogger()), newRequest(http.MethodPost, "/api/sweets", `{}`, uuid.Nil, nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSweetUpdatePartial(t *testing.T) {
	svc := &stubSweetService{}
	id := uuid.New()
	rec := serve(SweetUpdate(svc, testLogger()), newRequest(http.MethodPut, "/api/sweets/"+id.String(), `{"stock":7}`, uuid.New(), map[string]string{"id": id.String()}))

	if rec.Code != http.StatusOK || decodeEnvelope(t, rec).Message != "Sweet updated successfully" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if svc.updated.Stock == nil || *svc.updated.Stock != 7 {
		t.Fatalf("stock not forwarded")
	}
	if svc.updated.Name != nil || svc.updated.Price != nil {
		t.Fatalf("absent fields must stay nil: %+v", svc.updated)
	}
}

func TestSweetDelete(t *testing.T) {
	id := uuid.New()
	svc := &stubSweetService{}
	rec := serve(SweetDelete(svc, testLogger()), newRequest(http.MethodDelete, "/api/sweets/"+id.String(), "", uuid.New(), map[string]string{"id": id.String()}))
	if rec.Code != http.StatusOK || decodeEnvelope(t, rec).Message != "Sweet deleted successfully" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if svc.deleted != id {
		t.Fatalf("expected %s deleted", id)
	}

	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "Sweet not found")
	rec = serve(SweetDelete(svc, testLogger()), newRequest(http.MethodDelete, "/api/sweets/"+id.String(), "", uuid.New(), map[string]string{"id": id.String()}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
