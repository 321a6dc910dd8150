package steadfast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/orbitcart/orbitcart-backend/pkg/config"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
)

const (
	headerAPIKey    = "Api-Key"
	headerSecretKey = "Secret-Key"

	// StatusInReview is the consignment status Steadfast assigns on
	// booking when the API omits one.
	StatusInReview = "in_review"
	// StatusDelivered is the terminal courier status for a consignment.
	StatusDelivered = "delivered"
	// StatusCancelled marks a consignment the courier refused or returned.
	StatusCancelled = "cancelled"
)

var (
	errCredentialsRequired = errors.New("steadfast api key and secret key are required")
	errLoggerRequired      = errors.New("steadfast logger is required")
)

// CreateOrderRequest is the booking payload for a consignment.
type CreateOrderRequest struct {
	Invoice          string  `json:"invoice"`
	RecipientName    string  `json:"recipient_name"`
	RecipientPhone   string  `json:"recipient_phone"`
	RecipientAddress string  `json:"recipient_address"`
	CODAmount        float64 `json:"cod_amount"`
	Note             string  `json:"note,omitempty"`
	ItemDescription  string  `json:"item_description,omitempty"`
}

// Consignment is the courier's record of a booked shipment.
type Consignment struct {
	ConsignmentID json.Number `json:"consignment_id"`
	Invoice       string      `json:"invoice"`
	TrackingCode  string      `json:"tracking_code"`
	Status        string      `json:"status"`
}

type createOrderResponse struct {
	Status      int          `json:"status"`
	Message     string       `json:"message"`
	Consignment *Consignment `json:"consignment"`
}

type deliveryStatusResponse struct {
	Status         int    `json:"status"`
	DeliveryStatus string `json:"delivery_status"`
}

// Client exposes the Steadfast courier API with centralized auth,
// timeouts, and error mapping.
type Client struct {
	http   *resty.Client
	logger *logger.Logger
}

// NewClient initializes the courier wrapper and validates credentials.
func NewClient(cfg config.SteadfastConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if !cfg.Configured() {
		return nil, errCredentialsRequired
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(headerAPIKey, cfg.APIKey).
		SetHeader(headerSecretKey, cfg.SecretKey)

	return &Client{http: http, logger: logg}, nil
}

// CreateOrder books a consignment for the given payload. Transport
// failures and non-2xx replies map to a retryable dependency error.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Consignment, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post("/create_order")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier create_order request failed")
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("courier create_order returned status %d", resp.StatusCode()))
	}

	var decoded createOrderResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier create_order response malformed")
	}
	if decoded.Consignment == nil || decoded.Consignment.ConsignmentID.String() == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "courier create_order response missing consignment")
	}

	if decoded.Consignment.Status == "" {
		decoded.Consignment.Status = StatusInReview
	}

	c.logger.Info(c.logger.WithFields(ctx, map[string]any{
		"consignment_id": decoded.Consignment.ConsignmentID.String(),
		"tracking_code":  decoded.Consignment.TrackingCode,
	}), "courier consignment booked")

	return decoded.Consignment, nil
}

// StatusByConsignmentID fetches the courier-side delivery status.
func (c *Client) StatusByConsignmentID(ctx context.Context, consignmentID string) (string, error) {
	if strings.TrimSpace(consignmentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "consignment id is required")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get("/status_by_cid/" + consignmentID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier status request failed")
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("courier status returned status %d", resp.StatusCode()))
	}

	var decoded deliveryStatusResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "courier status response malformed")
	}
	if decoded.DeliveryStatus == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "courier status response missing delivery_status")
	}
	return decoded.DeliveryStatus, nil
}
