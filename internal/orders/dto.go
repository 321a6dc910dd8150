package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
	"github.com/orbitcart/orbitcart-backend/pkg/types"
)

// CreateOrderItemInput is one cart line as submitted by the client.
// Name, UnitPrice and ImageURL are fallbacks used when the catalog row
// cannot be loaded.
type CreateOrderItemInput struct {
	ProductID *uuid.UUID       `json:"productId,omitempty"`
	VariantID *uuid.UUID       `json:"variantId,omitempty"`
	Name      string           `json:"name,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	Qty       int              `json:"qty" validate:"required,gte=1"`
	ImageURL  *string          `json:"imageUrl,omitempty"`
}

// CreateOrderInput is the full checkout payload.
type CreateOrderInput struct {
	UserID          *uuid.UUID             `json:"userId,omitempty"`
	GuestName       *string                `json:"guestName,omitempty"`
	GuestEmail      *string                `json:"guestEmail,omitempty" validate:"omitempty,email"`
	GuestPhone      *string                `json:"guestPhone,omitempty"`
	Items           []CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *types.Address         `json:"shippingAddress,omitempty"`
	BillingAddress  *types.Address         `json:"billingAddress,omitempty"`
	DeliveryCharge  decimal.Decimal        `json:"deliveryCharge"`
	ItemsDiscount   decimal.Decimal        `json:"itemsDiscount"`
	CouponDiscount  decimal.Decimal        `json:"couponDiscount"`
	CouponID        *string                `json:"couponId,omitempty"`
	Note            *string                `json:"note,omitempty"`
}

// UpdateStatusInput carries a requested status transition.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   *ActorInput
}

// DispatchInput identifies the order to hand to the courier.
type DispatchInput struct {
	OrderID uuid.UUID
	Actor   *ActorInput
}

// ActorInput identifies the operator performing a mutation.
type ActorInput struct {
	UserID uuid.UUID
	Role   string
}

// ListFilters describe the supported order list filter knobs.
type ListFilters struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
	Query  string
}

// OrderItemDTO is the transport shape for an order line snapshot.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"productId,omitempty"`
	VariantID   *uuid.UUID      `json:"variantId,omitempty"`
	Name        string          `json:"name"`
	VariantName *string         `json:"variantName,omitempty"`
	SKU         *string         `json:"sku,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Qty         int             `json:"qty"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
}

// OrderDTO is the transport shape for a full order read.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	UserID      *uuid.UUID        `json:"userId,omitempty"`
	GuestName   *string           `json:"guestName,omitempty"`
	GuestEmail  *string           `json:"guestEmail,omitempty"`
	GuestPhone  *string           `json:"guestPhone,omitempty"`
	Status      enums.OrderStatus `json:"status"`

	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemsDiscount     decimal.Decimal `json:"itemsDiscount"`
	CouponDiscount    decimal.Decimal `json:"couponDiscount"`
	TotalWithDiscount decimal.Decimal `json:"totalWithDiscount"`
	DeliveryCharge    decimal.Decimal `json:"deliveryCharge"`
	Total             decimal.Decimal `json:"total"`

	CouponID        *string        `json:"couponId,omitempty"`
	ShippingAddress *types.Address `json:"shippingAddress,omitempty"`
	BillingAddress  *types.Address `json:"billingAddress,omitempty"`
	Note            *string        `json:"note,omitempty"`

	SteadfastConsignmentID *string `json:"steadfastConsignmentId,omitempty"`
	SteadfastTrackingCode  *string `json:"steadfastTrackingCode,omitempty"`
	CourierStatus          *string `json:"courierStatus,omitempty"`

	DispatchedAt *time.Time `json:"dispatchedAt,omitempty"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`

	Items     []OrderItemDTO `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// OrderList wraps a paginated order page with its metadata.
type OrderList struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

func itemFromModel(item *models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:          item.ID,
		ProductID:   item.ProductID,
		VariantID:   item.VariantID,
		Name:        item.Name,
		VariantName: item.VariantName,
		SKU:         item.SKU,
		UnitPrice:   item.UnitPrice,
		Qty:         item.Qty,
		LineTotal:   item.LineTotal,
		ImageURL:    item.ImageURL,
	}
}

// FromModel maps the persistence aggregate onto the transport shape.
func FromModel(order *models.Order) *OrderDTO {
	if order == nil {
		return nil
	}

	items := make([]OrderItemDTO, 0, len(order.Items))
	for i := range order.Items {
		items = append(items, itemFromModel(&order.Items[i]))
	}

	return &OrderDTO{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		GuestName:         order.GuestName,
		GuestEmail:        order.GuestEmail,
		GuestPhone:        order.GuestPhone,
		Status:            order.Status,
		Subtotal:          order.Subtotal,
		ItemsDiscount:     order.ItemsDiscount,
		CouponDiscount:    order.CouponDiscount,
		TotalWithDiscount: order.TotalWithDiscount(),
		DeliveryCharge:    order.DeliveryCharge,
		Total:             order.Total,

		CouponID:        order.CouponID,
		ShippingAddress: order.ShippingAddress,
		BillingAddress:  order.BillingAddress,
		Note:            order.CustomerNote,

		SteadfastConsignmentID: order.SteadfastConsignmentID,
		SteadfastTrackingCode:  order.SteadfastTrackingCode,
		CourierStatus:          order.CourierStatus,

		DispatchedAt: order.DispatchedAt,
		DeliveredAt:  order.DeliveredAt,
		CancelledAt:  order.CancelledAt,

		Items:     items,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
