package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, int64, error)

	// UpdateStatus applies a guarded status move. The write only lands
	// when the row still carries the expected current status; callers
	// inspect the returned flag to detect lost races.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)

	// MarkDispatched binds the courier consignment to the order. The
	// write is conditional on the order still being PROCESSING with no
	// consignment bound, which makes dispatch one-shot.
	MarkDispatched(ctx context.Context, orderID uuid.UUID, booking CourierBooking) (bool, error)

	UpdateCourierStatus(ctx context.Context, orderID uuid.UUID, courierStatus string) error

	// FindDispatched returns orders still out with the courier, oldest
	// dispatch first, capped at limit.
	FindDispatched(ctx context.Context, limit int) ([]models.Order, error)
}

// CourierBooking carries the courier-side identifiers recorded on a
// successful dispatch.
type CourierBooking struct {
	ConsignmentID string
	TrackingCode  string
	CourierStatus string
	DispatchedAt  time.Time
}
