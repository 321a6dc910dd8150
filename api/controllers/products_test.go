package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/internal/products"
	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
)

type stubProductService struct {
	dto  *products.ProductDTO
	list *products.ListResult
	err  error

	lastFilters products.ListFilters
}

func (s *stubProductService) GetProduct(context.Context, uuid.UUID) (*products.ProductDTO, error) {
	return s.dto, s.err
}

func (s *stubProductService) ListProducts(_ context.Context, filters products.ListFilters, _ pagination.Params) (*products.ListResult, error) {
	s.lastFilters = filters
	return s.list, s.err
}

func (s *stubProductService) SnapshotByIDs(context.Context, []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	return nil, s.err
}

func TestGetProductRejectsMalformedID(t *testing.T) {
	handler := GetProduct(&stubProductService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", "nope")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetProductSuccess(t *testing.T) {
	productID := uuid.New()
	svc := &stubProductService{dto: &products.ProductDTO{ID: productID, Name: "Ceramic Mug"}}
	handler := GetProduct(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID.String(), nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("productId", productID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data products.ProductDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != "Ceramic Mug" {
		t.Fatalf("unexpected product %+v", envelope.Data)
	}
}

func TestListProductsCollectsFilters(t *testing.T) {
	svc := &stubProductService{list: &products.ListResult{}}
	handler := ListProducts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?tag=mugs&q=ceramic&active=true", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastFilters.Tag != "mugs" || svc.lastFilters.Query != "ceramic" || !svc.lastFilters.OnlyActive {
		t.Fatalf("filters not carried through: %+v", svc.lastFilters)
	}
}

func TestListProductsRejectsBadLimit(t *testing.T) {
	handler := ListProducts(&stubProductService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
