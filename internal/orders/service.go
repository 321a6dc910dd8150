package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/orbitcart/orbitcart-backend/internal/invoices"
	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox/payloads"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
	"github.com/orbitcart/orbitcart-backend/pkg/steadfast"
)

const dispatchLockScope = "dispatch"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type courierClient interface {
	CreateOrder(ctx context.Context, req steadfast.CreateOrderRequest) (*steadfast.Consignment, error)
	StatusByConsignmentID(ctx context.Context, consignmentID string) (string, error)
}

type dispatchLocker interface {
	AcquireLock(ctx context.Context, scope, id string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, scope, id string) error
}

type sequenceCounter interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	Dispatch(ctx context.Context, input DispatchInput) (*OrderDTO, error)
	RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	Invoice(ctx context.Context, orderID uuid.UUID) (*invoices.Invoice, error)
	Label(ctx context.Context, orderID uuid.UUID) (*invoices.Label, error)
}

type service struct {
	repo            Repository
	tx              txRunner
	outbox          outboxPublisher
	catalog         catalogReader
	users           userFinder
	courier         courierClient
	locks           dispatchLocker
	counter         sequenceCounter
	dispatchLockTTL time.Duration
	logg            *logger.Logger
	now             func() time.Time
}

// Deps bundles the service dependencies. Courier may be nil when no
// Steadfast credentials are configured; dispatch then fails cleanly.
type Deps struct {
	Repo            Repository
	Tx              txRunner
	Outbox          outboxPublisher
	Catalog         catalogReader
	Users           userFinder
	Courier         courierClient
	Locks           dispatchLocker
	Counter         sequenceCounter
	DispatchLockTTL time.Duration
	Logger          *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user finder required")
	}
	if deps.Locks == nil {
		return nil, fmt.Errorf("dispatch locker required")
	}
	if deps.Counter == nil {
		return nil, fmt.Errorf("sequence counter required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	ttl := deps.DispatchLockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &service{
		repo:            deps.Repo,
		tx:              deps.Tx,
		outbox:          deps.Outbox,
		catalog:         deps.Catalog,
		users:           deps.Users,
		courier:         deps.Courier,
		locks:           deps.Locks,
		counter:         deps.Counter,
		dispatchLockTTL: ttl,
		logg:            deps.Logger,
		now:             time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
	}
	if input.DeliveryCharge.IsNegative() || input.ItemsDiscount.IsNegative() || input.CouponDiscount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charges and discounts must not be negative")
	}

	user := s.resolveUser(ctx, input.UserID)
	var userID *uuid.UUID
	guestName := input.GuestName
	guestEmail := input.GuestEmail
	guestPhone := input.GuestPhone
	if user != nil {
		userID = &user.ID
		guestName = &user.Name
		guestEmail = &user.Email
		if user.Phone != nil {
			guestPhone = user.Phone
		}
	}

	items, err := s.enrichItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	withDiscount := subtotal.Sub(input.ItemsDiscount).Sub(input.CouponDiscount)
	if withDiscount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discounts exceed items total")
	}
	total := withDiscount.Add(input.DeliveryCharge)

	orderNumber, err := s.nextOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     orderNumber,
		UserID:          userID,
		GuestName:       guestName,
		GuestEmail:      guestEmail,
		GuestPhone:      guestPhone,
		Status:          enums.OrderStatusPending,
		Subtotal:        subtotal,
		ItemsDiscount:   input.ItemsDiscount,
		CouponDiscount:  input.CouponDiscount,
		DeliveryCharge:  input.DeliveryCharge,
		Total:           total,
		CouponID:        input.CouponID,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  input.BillingAddress,
		CustomerNote:    input.Note,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				Total:       order.Total,
				ItemCount:   len(order.Items),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_number": order.OrderNumber,
		"items":        len(order.Items),
	})
	s.logg.Info(logCtx, "order created")

	return FromModel(order), nil
}

// resolveUser loads the claimed account so its contact details replace
// the client-supplied ones. A stale or unknown user reference
// downgrades the order to a guest order instead of failing checkout.
func (s *service) resolveUser(ctx context.Context, userID *uuid.UUID) *models.User {
	if userID == nil || *userID == uuid.Nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, *userID)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
		s.logg.Warn(logCtx, "user lookup failed, treating order as guest")
		return nil
	}
	return user
}

// enrichItems resolves each cart line against the catalog. Lines whose
// product cannot be loaded keep the client-supplied snapshot; a variant
// that does not belong to its product rejects the whole payload.
func (s *service) enrichItems(ctx context.Context, inputs []CreateOrderItemInput) ([]models.OrderItem, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, item := range inputs {
		if item.ProductID != nil {
			ids = append(ids, *item.ProductID)
		}
	}

	catalog, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		s.logg.Error(ctx, "catalog lookup failed, falling back to client line data", err)
		catalog = map[uuid.UUID]*models.Product{}
	}

	items := make([]models.OrderItem, 0, len(inputs))
	for i, input := range inputs {
		item := models.OrderItem{
			ProductID: input.ProductID,
			VariantID: input.VariantID,
			Qty:       input.Qty,
			ImageURL:  input.ImageURL,
		}

		var product *models.Product
		if input.ProductID != nil {
			product = catalog[*input.ProductID]
		}

		if product != nil {
			item.Name = product.Name
			item.UnitPrice = product.Price
			if product.SalePrice != nil {
				item.UnitPrice = *product.SalePrice
			}
			if product.ImageURL != nil {
				item.ImageURL = product.ImageURL
			}
			if input.VariantID != nil {
				variant := findVariant(product, *input.VariantID)
				if variant == nil {
					return nil, pkgerrors.New(pkgerrors.CodeValidation,
						fmt.Sprintf("item %d: variant does not belong to product", i))
				}
				// Variant sale price wins over the product-level one.
				item.UnitPrice = variant.Price
				switch {
				case variant.SalePrice != nil:
					item.UnitPrice = *variant.SalePrice
				case product.SalePrice != nil:
					item.UnitPrice = *product.SalePrice
				}
				item.VariantName = &variant.Name
				item.SKU = variant.SKU
			}
		} else {
			if input.ProductID != nil {
				logCtx := s.logg.WithField(ctx, "product_id", input.ProductID.String())
				s.logg.Warn(logCtx, "product not found, keeping client snapshot for line")
			}
			if strings.TrimSpace(input.Name) == "" || input.UnitPrice == nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("item %d: name and unitPrice are required when the product cannot be resolved", i))
			}
			if input.UnitPrice.IsNegative() {
				return nil, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("item %d: unitPrice must not be negative", i))
			}
			item.Name = input.Name
			item.UnitPrice = *input.UnitPrice
		}

		item.LineTotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		items = append(items, item)
	}
	return items, nil
}

func findVariant(product *models.Product, variantID uuid.UUID) *models.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}

func (s *service) nextOrderNumber(ctx context.Context) (string, error) {
	day := s.now().UTC().Format("20060102")
	seq, err := s.counter.Incr(ctx, s.counter.CounterKey("orders:"+day))
	if err != nil {
		// The counter is a convenience; uniqueness is enforced by the
		// order_number index, so fall back to an opaque suffix.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order number counter unavailable, using random suffix")
		return fmt.Sprintf("OC-%s-%s", day, strings.ToUpper(uuid.NewString()[:8])), nil
	}
	return fmt.Sprintf("OC-%s-%05d", day, seq), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) Invoice(ctx context.Context, orderID uuid.UUID) (*invoices.Invoice, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return invoices.BuildInvoice(order, s.now())
}

func (s *service) Label(ctx context.Context, orderID uuid.UUID) (*invoices.Label, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return invoices.BuildLabel(order)
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*OrderList, error) {
	params = params.Normalize()

	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, err
	}

	dtos := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *FromModel(&rows[i]))
	}
	return &OrderList{
		Orders: dtos,
		Meta:   pagination.MetaFor(params, total),
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if order.Status == input.Target {
			updated = order
			return nil
		}
		if !CanTransition(order.Status, input.Target) {
			return invalidTransition(order.Status, input.Target)
		}

		at := s.now().UTC()
		from := order.Status
		moved, err := repo.UpdateStatus(ctx, order.ID, from, input.Target, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		order.Status = input.Target
		switch input.Target {
		case enums.OrderStatusDispatched:
			order.DispatchedAt = &at
		case enums.OrderStatusDelivered:
			order.DeliveredAt = &at
		case enums.OrderStatusCancelled:
			order.CancelledAt = &at
		}
		updated = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderStatusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.Target,
				ChangedAt:   at,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) Dispatch(ctx context.Context, input DispatchInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if s.courier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotConfigured, "courier credentials are not configured")
	}

	lockID := input.OrderID.String()
	acquired, err := s.locks.AcquireLock(ctx, dispatchLockScope, lockID, s.dispatchLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire dispatch lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "dispatch already in progress for this order")
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		if err := s.locks.ReleaseLock(releaseCtx, dispatchLockScope, lockID); err != nil {
			s.logg.Warn(s.logg.WithOrderID(releaseCtx, lockID), "failed to release dispatch lock")
		}
	}()

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SteadfastConsignmentID != nil || order.Status == enums.OrderStatusDispatched {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already dispatched")
	}
	if order.Status != enums.OrderStatusProcessing {
		return nil, invalidTransition(order.Status, enums.OrderStatusDispatched)
	}
	if order.ShippingAddress == nil || order.ShippingAddress.Line() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no shipping address")
	}

	consignment, err := s.courier.CreateOrder(ctx, buildCourierRequest(order))
	if err != nil {
		return nil, err
	}

	booking := CourierBooking{
		ConsignmentID: consignment.ConsignmentID.String(),
		TrackingCode:  consignment.TrackingCode,
		CourierStatus: consignment.Status,
		DispatchedAt:  s.now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		moved, err := repo.MarkDispatched(ctx, order.ID, booking)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record dispatch")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already dispatched")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDispatched,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(input.Actor),
			Data: payloads.OrderDispatchedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        order.UserID,
				ConsignmentID: booking.ConsignmentID,
				TrackingCode:  booking.TrackingCode,
				DispatchedAt:  booking.DispatchedAt,
			},
		}
		return s.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusDispatched
	order.SteadfastConsignmentID = &booking.ConsignmentID
	order.SteadfastTrackingCode = &booking.TrackingCode
	order.CourierStatus = &booking.CourierStatus
	order.DispatchedAt = &booking.DispatchedAt

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"consignment_id": booking.ConsignmentID,
		"tracking_code":  booking.TrackingCode,
	})
	s.logg.Info(logCtx, "order dispatched to courier")

	return FromModel(order), nil
}

func buildCourierRequest(order *models.Order) steadfast.CreateOrderRequest {
	descriptions := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		descriptions = append(descriptions, fmt.Sprintf("%s x%d", item.Name, item.Qty))
	}
	itemDescription := strings.Join(descriptions, ", ")
	if itemDescription == "" {
		itemDescription = "order items"
	}

	// The note always names the order so courier-side staff can match
	// the parcel back without the invoice field.
	note := fmt.Sprintf("Order %s", order.OrderNumber)
	if order.CustomerNote != nil && *order.CustomerNote != "" {
		note = fmt.Sprintf("%s: %s", note, *order.CustomerNote)
	}

	codAmount, _ := order.Total.Float64()
	if codAmount < 0 {
		codAmount = 0
	}

	return steadfast.CreateOrderRequest{
		Invoice:          order.ID.String(),
		RecipientName:    order.ShippingAddress.Name,
		RecipientPhone:   order.ShippingAddress.Phone,
		RecipientAddress: order.ShippingAddress.Line(),
		CODAmount:        codAmount,
		Note:             note,
		ItemDescription:  itemDescription,
	}
}

func (s *service) RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if s.courier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotConfigured, "courier credentials are not configured")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.SteadfastConsignmentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been dispatched")
	}

	status, err := s.courier.StatusByConsignmentID(ctx, *order.SteadfastConsignmentID)
	if err != nil {
		return nil, err
	}
	if order.CourierStatus != nil && *order.CourierStatus == status {
		return FromModel(order), nil
	}

	at := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.UpdateCourierStatus(ctx, order.ID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record courier status")
		}

		if status == steadfast.StatusDelivered && order.Status == enums.OrderStatusDispatched {
			moved, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusDispatched, enums.OrderStatusDelivered, at)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
			}
			if moved {
				order.Status = enums.OrderStatusDelivered
				order.DeliveredAt = &at

				statusEvent := outbox.DomainEvent{
					EventType:     enums.EventOrderStatusChanged,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Version:       1,
					Data: payloads.OrderStatusChangedEvent{
						OrderID:     order.ID,
						OrderNumber: order.OrderNumber,
						From:        enums.OrderStatusDispatched,
						To:          enums.OrderStatusDelivered,
						ChangedAt:   at,
					},
				}
				if err := s.outbox.Emit(ctx, tx, statusEvent); err != nil {
					return err
				}
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCourierStatusUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.CourierStatusUpdatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				ConsignmentID: *order.SteadfastConsignmentID,
				CourierStatus: status,
				CheckedAt:     at,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	order.CourierStatus = &status
	return FromModel(order), nil
}

func actorRef(actor *ActorInput) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   actor.Role,
	}
}
