package products

import (
	"context"

	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
)

// Service exposes catalog read operations used by the storefront and by
// order enrichment.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, filters ListFilters, page pagination.Params) (*ListResult, error)
	SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

// ListResult pairs a product page with its pagination metadata.
type ListResult struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

type catalogReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	List(ctx context.Context, filters ListFilters, page pagination.Params) ([]models.Product, int64, error)
}

type service struct {
	repo catalogReader
	logg *logger.Logger
}

// NewService builds the catalog service after validating dependencies.
func NewService(repo catalogReader, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "catalog repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	model, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(model), nil
}

func (s *service) ListProducts(ctx context.Context, filters ListFilters, page pagination.Params) (*ListResult, error) {
	page = page.Normalize()

	rows, total, err := s.repo.List(ctx, filters, page)
	if err != nil {
		return nil, err
	}

	products := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		products = append(products, *FromModel(&rows[i]))
	}

	return &ListResult{
		Products: products,
		Meta:     pagination.MetaFor(page, total),
	}, nil
}

// SnapshotByIDs exposes raw catalog rows for order enrichment. Missing
// or inactive products are left out; the caller falls back to its own
// line data for those.
func (s *service) SnapshotByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	return s.repo.FindByIDs(ctx, ids)
}
