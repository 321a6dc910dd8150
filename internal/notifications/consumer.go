package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox/idempotency"
	"github.com/orbitcart/orbitcart-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
}

type adminDirectory interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// Consumer watches order events and fans them out as in-app
// notifications. Delivery is at most once: a failed insert is logged
// and the message acked, never retried.
type Consumer struct {
	repo         repository
	admins       adminDirectory
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	consoleBase  string
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, admins adminDirectory, subscription *pubsub.Subscriber, manager *idempotency.Manager, consoleBase string, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		admins:       admins,
		subscription: subscription,
		idempotency:  manager,
		consoleBase:  consoleBase,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		c.process(ctx, msg)
		msg.Ack()
	})
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return
	}

	if err := c.HandleEvent(ctx, enums.OutboxEventType(eventType), envelope.Data); err != nil {
		c.logg.Error(logCtx, "notification fanout failed", err)
	}
}

// HandleEvent routes a decoded event payload to the matching fanout.
// Unknown event types are ignored.
func (c *Consumer) HandleEvent(ctx context.Context, eventType enums.OutboxEventType, data json.RawMessage) error {
	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order_created payload: %w", err)
		}
		return c.fanOutNewOrder(ctx, payload)
	case enums.EventOrderDispatched:
		var payload payloads.OrderDispatchedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse order_dispatched payload: %w", err)
		}
		return c.notifyDispatched(ctx, payload)
	case enums.EventCourierStatusUpdated:
		var payload payloads.CourierStatusUpdatedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("parse courier_status_updated payload: %w", err)
		}
		return c.fanOutCourierUpdate(ctx, payload)
	default:
		return nil
	}
}

// fanOutNewOrder writes one unread row per active admin.
func (c *Consumer) fanOutNewOrder(ctx context.Context, payload payloads.OrderCreatedEvent) error {
	admins, err := c.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return nil
	}

	orderID := payload.OrderID
	link := c.orderLink(orderID)
	rows := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		rows = append(rows, models.Notification{
			RecipientID: admin.ID,
			Type:        enums.NotificationTypeOrderPlaced,
			Title:       "New order placed",
			Message:     fmt.Sprintf("Order %s was placed for %s.", payload.OrderNumber, payload.Total),
			OrderID:     &orderID,
			Link:        &link,
		})
	}
	return c.repo.CreateBatch(ctx, rows)
}

// notifyDispatched writes one unread row per active admin, guest
// orders included.
func (c *Consumer) notifyDispatched(ctx context.Context, payload payloads.OrderDispatchedEvent) error {
	admins, err := c.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return nil
	}

	orderID := payload.OrderID
	link := c.orderLink(orderID)
	rows := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		rows = append(rows, models.Notification{
			RecipientID: admin.ID,
			Type:        enums.NotificationTypeOrderDispatch,
			Title:       "Order dispatched",
			Message:     fmt.Sprintf("Order %s was handed to the courier. Tracking code: %s.", payload.OrderNumber, payload.TrackingCode),
			OrderID:     &orderID,
			Link:        &link,
		})
	}
	return c.repo.CreateBatch(ctx, rows)
}

// fanOutCourierUpdate surfaces courier-side status changes to admins.
func (c *Consumer) fanOutCourierUpdate(ctx context.Context, payload payloads.CourierStatusUpdatedEvent) error {
	admins, err := c.admins.ListAdmins(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(admins) == 0 {
		return nil
	}

	orderID := payload.OrderID
	link := c.orderLink(orderID)
	rows := make([]models.Notification, 0, len(admins))
	for _, admin := range admins {
		rows = append(rows, models.Notification{
			RecipientID: admin.ID,
			Type:        enums.NotificationTypeCourierUpdate,
			Title:       "Courier status update",
			Message:     fmt.Sprintf("Order %s courier status is now %q.", payload.OrderNumber, payload.CourierStatus),
			OrderID:     &orderID,
			Link:        &link,
		})
	}
	return c.repo.CreateBatch(ctx, rows)
}

func (c *Consumer) orderLink(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/orders/%s", c.consoleBase, orderID)
}
