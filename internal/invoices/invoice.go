package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/types"
)

// Line is a single invoice row.
type Line struct {
	Name        string          `json:"name"`
	VariantName *string         `json:"variantName,omitempty"`
	SKU         *string         `json:"sku,omitempty"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Invoice is the printable document assembled from an order snapshot.
type Invoice struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	IssuedAt    time.Time `json:"issuedAt"`

	CustomerName string         `json:"customerName"`
	BillTo       *types.Address `json:"billTo,omitempty"`
	ShipTo       *types.Address `json:"shipTo,omitempty"`

	Lines []Line `json:"lines"`

	Subtotal          decimal.Decimal `json:"subtotal"`
	ItemsDiscount     decimal.Decimal `json:"itemsDiscount"`
	CouponDiscount    decimal.Decimal `json:"couponDiscount"`
	TotalWithDiscount decimal.Decimal `json:"totalWithDiscount"`
	DeliveryCharge    decimal.Decimal `json:"deliveryCharge"`
	Total             decimal.Decimal `json:"total"`
}

// Label is the shipping label payload for a dispatched parcel.
type Label struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`

	RecipientName    string `json:"recipientName"`
	RecipientPhone   string `json:"recipientPhone"`
	RecipientAddress string `json:"recipientAddress"`

	ItemCount    int             `json:"itemCount"`
	CODAmount    decimal.Decimal `json:"codAmount"`
	TrackingCode *string         `json:"trackingCode,omitempty"`
	Consignment  *string         `json:"consignment,omitempty"`
	Note         *string         `json:"note,omitempty"`
}

// BuildInvoice assembles the invoice document from a persisted order.
// All values come from the order snapshot, never from live catalog rows.
func BuildInvoice(order *models.Order, issuedAt time.Time) (*Invoice, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	lines := make([]Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, Line{
			Name:        item.Name,
			VariantName: item.VariantName,
			SKU:         item.SKU,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}

	billTo := order.BillingAddress
	if billTo == nil {
		billTo = order.ShippingAddress
	}

	return &Invoice{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		IssuedAt:     issuedAt.UTC(),
		CustomerName: customerName(order),
		BillTo:       billTo,
		ShipTo:       order.ShippingAddress,
		Lines:        lines,

		Subtotal:          order.Subtotal,
		ItemsDiscount:     order.ItemsDiscount,
		CouponDiscount:    order.CouponDiscount,
		TotalWithDiscount: order.TotalWithDiscount(),
		DeliveryCharge:    order.DeliveryCharge,
		Total:             order.Total,
	}, nil
}

// BuildLabel assembles the shipping label. It requires the shipping
// address snapshot the courier dispatch requires.
func BuildLabel(order *models.Order) (*Label, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.ShippingAddress == nil || order.ShippingAddress.Line() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no shipping address")
	}

	return &Label{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		RecipientName:    order.ShippingAddress.Name,
		RecipientPhone:   order.ShippingAddress.Phone,
		RecipientAddress: order.ShippingAddress.Line(),
		ItemCount:        len(order.Items),
		CODAmount:        order.Total,
		TrackingCode:     order.SteadfastTrackingCode,
		Consignment:      order.SteadfastConsignmentID,
		Note:             order.CustomerNote,
	}, nil
}

func customerName(order *models.Order) string {
	if order.ShippingAddress != nil && order.ShippingAddress.Name != "" {
		return order.ShippingAddress.Name
	}
	if order.GuestName != nil && *order.GuestName != "" {
		return *order.GuestName
	}
	if order.User != nil {
		return order.User.Name
	}
	return ""
}
