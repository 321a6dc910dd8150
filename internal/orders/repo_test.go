package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
	"github.com/orbitcart/orbitcart-backend/pkg/types"
)

func mustCreateTestOrder(t *testing.T, tx *gorm.DB, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:             uuid.New(),
		OrderNumber:    fmt.Sprintf("OC-TEST-%s", uuid.NewString()[:8]),
		Status:         status,
		Subtotal:       decimal.RequireFromString("1000"),
		DeliveryCharge: decimal.RequireFromString("80"),
		Total:          decimal.RequireFromString("1080"),
		ShippingAddress: &types.Address{
			Name:    "Repo Tester",
			Phone:   "01712345678",
			Street:  "House 7, Road 3",
			City:    "Dhaka",
			Country: "BD",
		},
		Items: []models.OrderItem{
			{
				ID:        uuid.New(),
				Name:      "Ceramic Mug",
				UnitPrice: decimal.RequireFromString("500"),
				Qty:       2,
				LineTotal: decimal.RequireFromString("1000"),
			},
		},
	}
	if err := tx.Create(order).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestRepositoryOrderFlow(t *testing.T) {
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

	order := mustCreateTestOrder(t, tx, enums.OrderStatusPending)

	fetched, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(fetched.Items))
	}
	if fetched.UserID != nil {
		t.Fatal("expected a guest order")
	}

	byNumber, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		t.Fatalf("find by order number: %v", err)
	}
	if byNumber.ID != order.ID {
		t.Fatalf("expected order %s, got %s", order.ID, byNumber.ID)
	}

	_, err = repo.FindByID(ctx, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	status := enums.OrderStatusPending
	rows, total, err := repo.List(ctx, ListFilters{Status: &status}, pagination.Params{Limit: 10, Page: 1})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if total == 0 || len(rows) == 0 {
		t.Fatal("expected listed order")
	}
}

func TestRepositoryStatusCAS(t *testing.T) {
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
	order := mustCreateTestOrder(t, tx, enums.OrderStatusPending)
	now := time.Now().UTC()

	moved, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing, now)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !moved {
		t.Fatal("expected status move to land")
	}

	// The row no longer carries PENDING, so the same move must miss.
	moved, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusProcessing, now)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if moved {
		t.Fatal("expected stale status move to miss")
	}

	moved, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusProcessing, enums.OrderStatusCancelled, now)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if !moved {
		t.Fatal("expected cancel to land")
	}

	fetched, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if fetched.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", fetched.Status)
	}
	if fetched.CancelledAt == nil {
		t.Fatal("expected cancelled_at to be stamped")
	}
}

func TestRepositoryMarkDispatchedIsOneShot(t *testing.T) {
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
	order := mustCreateTestOrder(t, tx, enums.OrderStatusProcessing)

	booking := CourierBooking{
		ConsignmentID: fmt.Sprintf("C-%s", uuid.NewString()[:8]),
		TrackingCode:  "15BAEB8A",
		CourierStatus: "in_review",
		DispatchedAt:  time.Now().UTC(),
	}

	moved, err := repo.MarkDispatched(ctx, order.ID, booking)
	if err != nil {
		t.Fatalf("mark dispatched: %v", err)
	}
	if !moved {
		t.Fatal("expected dispatch to land")
	}

	moved, err = repo.MarkDispatched(ctx, order.ID, booking)
	if err != nil {
		t.Fatalf("mark dispatched again: %v", err)
	}
	if moved {
		t.Fatal("expected second dispatch write to miss")
	}

	fetched, err := repo.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if fetched.Status != enums.OrderStatusDispatched {
		t.Fatalf("expected DISPATCHED, got %s", fetched.Status)
	}
	if fetched.SteadfastConsignmentID == nil || *fetched.SteadfastConsignmentID != booking.ConsignmentID {
		t.Fatalf("expected consignment to be bound, got %v", fetched.SteadfastConsignmentID)
	}
}
