package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
)

// ProductDTO is the transport shape for catalog reads.
type ProductDTO struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Slug        string           `json:"slug"`
	Description *string          `json:"description,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty"`
	Stock       int              `json:"stock"`
	ImageURL    *string          `json:"imageUrl,omitempty"`
	Tags        []string         `json:"tags"`
	IsActive    bool             `json:"isActive"`
	Variants    []VariantDTO     `json:"variants"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// VariantDTO is the transport shape for a purchasable variation.
type VariantDTO struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	SKU       *string          `json:"sku,omitempty"`
	Price     decimal.Decimal  `json:"price"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty"`
	Stock     int              `json:"stock"`
}

func FromModel(p *models.Product) *ProductDTO {
	if p == nil {
		return nil
	}

	variants := make([]VariantDTO, 0, len(p.Variants))
	for _, v := range p.Variants {
		variants = append(variants, VariantDTO{
			ID:        v.ID,
			Name:      v.Name,
			SKU:       v.SKU,
			Price:     v.Price,
			SalePrice: v.SalePrice,
			Stock:     v.Stock,
		})
	}

	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		SalePrice:   p.SalePrice,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		Tags:        append([]string(nil), p.Tags...),
		IsActive:    p.IsActive,
		Variants:    variants,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
