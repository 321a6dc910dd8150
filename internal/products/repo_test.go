package products

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
)

func TestRepositoryCatalogFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	sku := "SKU-" + uuid.NewString()
	created, err := repo.Create(ctx, &models.Product{
		Name:     "Ceramic Mug",
		Slug:     fmt.Sprintf("ceramic-mug-%s", uuid.NewString()),
		Price:    decimal.RequireFromString("500.00"),
		Stock:    10,
		Tags:     pq.StringArray{"kitchen"},
		IsActive: true,
		Variants: []models.ProductVariant{
			{Name: "Large", SKU: &sku, Price: decimal.RequireFromString("550.00"), Stock: 4},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected product id to be generated")
	}

	fetched, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(fetched.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(fetched.Variants))
	}
	if !fetched.Variants[0].Price.Equal(decimal.RequireFromString("550.00")) {
		t.Fatalf("unexpected variant price %s", fetched.Variants[0].Price)
	}

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{created.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(byIDs) != 1 {
		t.Fatalf("expected only the existing product, got %d rows", len(byIDs))
	}

	rows, total, err := repo.List(ctx, ListFilters{Tag: "kitchen", OnlyActive: true}, pagination.Params{Limit: 10, Page: 1})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total == 0 || len(rows) == 0 {
		t.Fatal("expected listed product")
	}
}
