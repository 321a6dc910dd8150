package steadfast

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orbitcart/orbitcart-backend/pkg/config"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	client, err := NewClient(config.SteadfastConfig{
		APIKey:    "key",
		SecretKey: "secret",
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
	}, logg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	if _, err := NewClient(config.SteadfastConfig{BaseURL: "http://example.test"}, logg); err == nil {
		t.Fatal("expected missing credentials to fail")
	}
}

func TestCreateOrderBooksConsignment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/create_order" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "key" || r.Header.Get("Secret-Key") != "secret" {
			t.Fatalf("missing auth headers")
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Invoice != "OC-1001" {
			t.Fatalf("unexpected invoice %q", req.Invoice)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  200,
			"message": "Consignment has been created successfully.",
			"consignment": map[string]any{
				"consignment_id": 14037,
				"invoice":        req.Invoice,
				"tracking_code":  "15BAEB8A",
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	consignment, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Invoice:          "OC-1001",
		RecipientName:    "Rahim Uddin",
		RecipientPhone:   "01711111111",
		RecipientAddress: "House 7, Road 2, Dhanmondi, Dhaka",
		CODAmount:        1250,
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if consignment.ConsignmentID.String() != "14037" {
		t.Fatalf("unexpected consignment id %q", consignment.ConsignmentID.String())
	}
	if consignment.TrackingCode != "15BAEB8A" {
		t.Fatalf("unexpected tracking code %q", consignment.TrackingCode)
	}
	if consignment.Status != StatusInReview {
		t.Fatalf("expected default status %q, got %q", StatusInReview, consignment.Status)
	}
}

func TestCreateOrderMapsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Invoice: "OC-1002"})
	if err == nil {
		t.Fatal("expected error for non-2xx reply")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateOrderTimesOut(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client := newTestClient(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.CreateOrder(ctx, CreateOrderRequest{Invoice: "OC-1003"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestStatusByConsignmentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status_by_cid/14037" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":          200,
			"delivery_status": "delivered",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	status, err := client.StatusByConsignmentID(context.Background(), "14037")
	if err != nil {
		t.Fatalf("StatusByConsignmentID failed: %v", err)
	}
	if status != "delivered" {
		t.Fatalf("unexpected status %q", status)
	}

	if _, err := client.StatusByConsignmentID(context.Background(), " "); err == nil {
		t.Fatal("expected validation error for blank id")
	}
}
