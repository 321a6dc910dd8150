package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/enums"
)

// OrderCreatedEvent signals that a new order entered the pipeline.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      *uuid.UUID      `json:"user_id,omitempty"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
}

// OrderStatusChangedEvent is emitted on every committed status transition.
type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
	ChangedAt   time.Time         `json:"changed_at"`
}

// OrderDispatchedEvent surfaces the courier booking result.
type OrderDispatchedEvent struct {
	OrderID       uuid.UUID  `json:"order_id"`
	OrderNumber   string     `json:"order_number"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	ConsignmentID string     `json:"consignment_id"`
	TrackingCode  string     `json:"tracking_code"`
	DispatchedAt  time.Time  `json:"dispatched_at"`
}

// CourierStatusUpdatedEvent reports a courier-side status change seen
// during a refresh poll.
type CourierStatusUpdatedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	ConsignmentID string    `json:"consignment_id"`
	CourierStatus string    `json:"courier_status"`
	CheckedAt     time.Time `json:"checked_at"`
}
