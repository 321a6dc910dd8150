package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
)

func TestCourierRefreshJobSweepsAllDispatchedOrders(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	reader := &fakeDispatchedReader{orders: dispatchedOrders(ids...)}
	refresher := &fakeCourierRefresher{}
	job := newCourierRefreshJob(t, reader, refresher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(refresher.calls) != len(ids) {
		t.Fatalf("expected %d refresh calls, got %d", len(ids), len(refresher.calls))
	}
}

func TestCourierRefreshJobContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	reader := &fakeDispatchedReader{orders: dispatchedOrders(bad, good)}
	refresher := &fakeCourierRefresher{
		errs: map[uuid.UUID]error{
			bad: pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been dispatched"),
		},
	}
	job := newCourierRefreshJob(t, reader, refresher)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if got := refresher.count(good); got != 1 {
		t.Fatalf("expected healthy order refreshed once, got %d", got)
	}
	// State conflicts are not retried.
	if got := refresher.count(bad); got != 1 {
		t.Fatalf("expected failing order attempted once, got %d", got)
	}
}

func TestCourierRefreshJobRetriesDependencyErrors(t *testing.T) {
	flaky := uuid.New()
	reader := &fakeDispatchedReader{orders: dispatchedOrders(flaky)}
	refresher := &fakeCourierRefresher{
		errs: map[uuid.UUID]error{
			flaky: pkgerrors.New(pkgerrors.CodeDependency, "courier timeout"),
		},
		recoverAfter: map[uuid.UUID]int{flaky: 1},
	}
	job := newCourierRefreshJob(t, reader, refresher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := refresher.count(flaky); got != 2 {
		t.Fatalf("expected one retry after transient failure, got %d calls", got)
	}
}

func TestCourierRefreshJobSkipsWhenNothingDispatched(t *testing.T) {
	reader := &fakeDispatchedReader{}
	refresher := &fakeCourierRefresher{}
	job := newCourierRefreshJob(t, reader, refresher)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(refresher.calls) != 0 {
		t.Fatalf("expected no refresh calls, got %d", len(refresher.calls))
	}
}

func TestCourierRefreshJobPropagatesReaderErrors(t *testing.T) {
	reader := &fakeDispatchedReader{err: errors.New("db down")}
	job := newCourierRefreshJob(t, reader, &fakeCourierRefresher{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newCourierRefreshJob(t *testing.T, reader *fakeDispatchedReader, refresher *fakeCourierRefresher) *courierRefreshJob {
	t.Helper()
	jobIface, err := NewCourierRefreshJob(CourierRefreshJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Orders:    reader,
		Refresher: refresher,
	})
	if err != nil {
		t.Fatalf("NewCourierRefreshJob: %v", err)
	}
	job, ok := jobIface.(*courierRefreshJob)
	if !ok {
		t.Fatalf("expected courierRefreshJob, got %T", jobIface)
	}
	job.backoff = time.Millisecond
	return job
}

func dispatchedOrders(ids ...uuid.UUID) []models.Order {
	rows := make([]models.Order, 0, len(ids))
	for i, id := range ids {
		rows = append(rows, models.Order{
			ID:          id,
			OrderNumber: fmt.Sprintf("ORD-2026-%05d", i+1),
		})
	}
	return rows
}

type fakeDispatchedReader struct {
	orders []models.Order
	err    error
}

func (f *fakeDispatchedReader) FindDispatched(_ context.Context, limit int) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.orders) > limit {
		return f.orders[:limit], nil
	}
	return f.orders, nil
}

type fakeCourierRefresher struct {
	calls        []uuid.UUID
	errs         map[uuid.UUID]error
	recoverAfter map[uuid.UUID]int
}

func (f *fakeCourierRefresher) RefreshCourierStatus(_ context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	f.calls = append(f.calls, orderID)
	err, ok := f.errs[orderID]
	if !ok {
		return &orders.OrderDTO{ID: orderID}, nil
	}
	if after, recovers := f.recoverAfter[orderID]; recovers && f.count(orderID) > after {
		return &orders.OrderDTO{ID: orderID}, nil
	}
	return nil, err
}

func (f *fakeCourierRefresher) count(orderID uuid.UUID) int {
	n := 0
	for _, id := range f.calls {
		if id == orderID {
			n++
		}
	}
	return n
}
