package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitcart/orbitcart-backend/internal/invoices"
	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/pkg/enums"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/pagination"
	"github.com/orbitcart/orbitcart-backend/pkg/types"
)

type stubOrderService struct {
	dto     *orders.OrderDTO
	list    *orders.OrderList
	invoice *invoices.Invoice
	label   *invoices.Label
	err     error

	lastCreate *orders.CreateOrderInput
	lastUpdate *orders.UpdateStatusInput
}

func (s *stubOrderService) Create(_ context.Context, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	s.lastCreate = &input
	return s.dto, s.err
}

func (s *stubOrderService) Get(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
	return s.dto, s.err
}

func (s *stubOrderService) List(context.Context, orders.ListFilters, pagination.Params) (*orders.OrderList, error) {
	return s.list, s.err
}

func (s *stubOrderService) UpdateStatus(_ context.Context, input orders.UpdateStatusInput) (*orders.OrderDTO, error) {
	s.lastUpdate = &input
	return s.dto, s.err
}

func (s *stubOrderService) Dispatch(context.Context, orders.DispatchInput) (*orders.OrderDTO, error) {
	return s.dto, s.err
}

func (s *stubOrderService) RefreshCourierStatus(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
	return s.dto, s.err
}

func (s *stubOrderService) Invoice(context.Context, uuid.UUID) (*invoices.Invoice, error) {
	return s.invoice, s.err
}

func (s *stubOrderService) Label(context.Context, uuid.UUID) (*invoices.Label, error) {
	return s.label, s.err
}

func requestWithOrderID(method, target, orderID string, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func sampleOrderDTO(status enums.OrderStatus) *orders.OrderDTO {
	return &orders.OrderDTO{
		ID:          uuid.New(),
		OrderNumber: "OC-20260831-00042",
		Status:      status,
		Total:       decimal.RequireFromString("1080"),
	}
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	svc := &stubOrderService{dto: sampleOrderDTO(enums.OrderStatusPending)}
	handler := CreateOrder(svc, nil)

	body := `{"items":[{"name":"Ceramic Mug","unitPrice":"500","qty":2}],"deliveryCharge":"80","guestName":"Anika"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastCreate == nil || len(svc.lastCreate.Items) != 1 {
		t.Fatalf("service did not receive decoded input")
	}
	if svc.lastCreate.Items[0].Qty != 2 {
		t.Fatalf("unexpected qty %d", svc.lastCreate.Items[0].Qty)
	}

	var envelope types.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Status != types.ResponseStatusSuccess {
		t.Fatalf("unexpected envelope status %q", envelope.Status)
	}
}

func TestCreateOrderRejectsEmptyItems(t *testing.T) {
	svc := &stubOrderService{}
	handler := CreateOrder(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items":[]}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastCreate != nil {
		t.Fatalf("service must not be called for invalid payloads")
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	handler := GetOrder(svc, nil)

	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), uuid.NewString(), "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestGetOrderRejectsMalformedID(t *testing.T) {
	handler := GetOrder(&stubOrderService{}, nil)

	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/nope", "nope", "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestUpdateOrderStatusParsesTarget(t *testing.T) {
	svc := &stubOrderService{dto: sampleOrderDTO(enums.OrderStatusProcessing)}
	handler := UpdateOrderStatus(svc, nil)

	orderID := uuid.New()
	actorID := uuid.New()
	body := `{"status":"PROCESSING","actorId":"` + actorID.String() + `","actorRole":"admin"}`
	req := requestWithOrderID(http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", orderID.String(), body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastUpdate == nil {
		t.Fatalf("service not called")
	}
	if svc.lastUpdate.Target != enums.OrderStatusProcessing {
		t.Fatalf("unexpected target %s", svc.lastUpdate.Target)
	}
	if svc.lastUpdate.Actor == nil || svc.lastUpdate.Actor.UserID != actorID || svc.lastUpdate.Actor.Role != "admin" {
		t.Fatalf("actor not carried through: %+v", svc.lastUpdate.Actor)
	}
}

func TestUpdateOrderStatusRejectsUnknownStatus(t *testing.T) {
	handler := UpdateOrderStatus(&stubOrderService{}, nil)

	orderID := uuid.New()
	req := requestWithOrderID(http.MethodPatch, "/api/v1/orders/"+orderID.String()+"/status", orderID.String(), `{"status":"SHIPPED"}`)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDispatchOrderMapsStateConflict(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "order already dispatched")}
	handler := DispatchOrder(svc, nil)

	orderID := uuid.New()
	req := requestWithOrderID(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/dispatch", orderID.String(), "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}

	var envelope types.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Message != "order already dispatched" {
		t.Fatalf("unexpected message %q", envelope.Message)
	}
}

func TestOrderInvoiceSuccess(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrderService{invoice: &invoices.Invoice{
		OrderID:     orderID,
		OrderNumber: "OC-20260831-00042",
		Total:       decimal.RequireFromString("1080"),
	}}
	handler := OrderInvoice(svc, nil)

	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/invoice", orderID.String(), "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data invoices.Invoice `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderNumber != "OC-20260831-00042" {
		t.Fatalf("unexpected invoice %+v", envelope.Data)
	}
}

func TestOrderLabelRequiresAddress(t *testing.T) {
	svc := &stubOrderService{err: pkgerrors.New(pkgerrors.CodeValidation, "order has no shipping address")}
	handler := OrderLabel(svc, nil)

	orderID := uuid.New()
	req := requestWithOrderID(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/label", orderID.String(), "")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
