package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	"github.com/orbitcart/orbitcart-backend/pkg/types"
)

// Order is the fulfillment aggregate. Monetary and address fields are
// snapshots computed at creation; catalog edits never rewrite them.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	GuestName   *string           `gorm:"column:guest_name"`
	GuestEmail  *string           `gorm:"column:guest_email"`
	GuestPhone  *string           `gorm:"column:guest_phone"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`

	// Total is the net amount collected on delivery. The stored value
	// always satisfies
	// Total = Subtotal - ItemsDiscount - CouponDiscount + DeliveryCharge.
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ItemsDiscount  decimal.Decimal `gorm:"column:items_discount;type:numeric(12,2);not null;default:0"`
	CouponDiscount decimal.Decimal `gorm:"column:coupon_discount;type:numeric(12,2);not null;default:0"`
	DeliveryCharge decimal.Decimal `gorm:"column:delivery_charge;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	CouponID        *string        `gorm:"column:coupon_id"`
	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`
	CustomerNote    *string        `gorm:"column:customer_note"`

	SteadfastConsignmentID *string `gorm:"column:steadfast_consignment_id;uniqueIndex"`
	SteadfastTrackingCode  *string `gorm:"column:steadfast_tracking_code"`
	CourierStatus          *string `gorm:"column:courier_status"`

	DispatchedAt *time.Time `gorm:"column:dispatched_at"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User  *User       `gorm:"foreignKey:UserID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool { return o.UserID == nil }

// TotalWithDiscount is the items total after discounts, before the
// delivery charge is added.
func (o *Order) TotalWithDiscount() decimal.Decimal {
	return o.Subtotal.Sub(o.ItemsDiscount).Sub(o.CouponDiscount)
}
