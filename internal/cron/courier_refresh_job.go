package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/orbitcart/orbitcart-backend/internal/orders"
	"github.com/orbitcart/orbitcart-backend/pkg/db/models"
	pkgerrors "github.com/orbitcart/orbitcart-backend/pkg/errors"
	"github.com/orbitcart/orbitcart-backend/pkg/logger"
)

const (
	courierRefreshBatchSize    = 200
	courierRefreshMaxRetries   = 2
	courierRefreshRetryBackoff = 500 * time.Millisecond
)

// CourierRefreshJobParams configure the dispatched-order sweep.
type CourierRefreshJobParams struct {
	Logger    *logger.Logger
	Orders    dispatchedOrderReader
	Refresher courierStatusRefresher
	BatchSize int
}

type dispatchedOrderReader interface {
	FindDispatched(ctx context.Context, limit int) ([]models.Order, error)
}

type courierStatusRefresher interface {
	RefreshCourierStatus(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error)
}

// NewCourierRefreshJob builds the job that polls the courier for every
// order still marked DISPATCHED and folds delivered ones forward.
func NewCourierRefreshJob(params CourierRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("courier refresher required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = courierRefreshBatchSize
	}
	return &courierRefreshJob{
		logg:      params.Logger,
		orders:    params.Orders,
		refresher: params.Refresher,
		batchSize: batchSize,
		backoff:   courierRefreshRetryBackoff,
	}, nil
}

type courierRefreshJob struct {
	logg      *logger.Logger
	orders    dispatchedOrderReader
	refresher courierStatusRefresher
	batchSize int
	backoff   time.Duration
}

func (j *courierRefreshJob) Name() string { return "courier-refresh" }

func (j *courierRefreshJob) Run(ctx context.Context) error {
	rows, err := j.orders.FindDispatched(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list dispatched orders: %w", err)
	}
	if len(rows) == 0 {
		j.logg.Info(ctx, "no dispatched orders to refresh")
		return nil
	}

	var refreshed, failed int
	var errs error
	for _, order := range rows {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		if err := j.refreshOne(ctx, order.ID); err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderNumber, err))
			continue
		}
		refreshed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders_swept": len(rows),
		"refreshed":    refreshed,
		"failed":       failed,
	})
	j.logg.Info(logCtx, "courier refresh sweep complete")
	if errs != nil {
		return fmt.Errorf("courier refresh: %w", errs)
	}
	return nil
}

// refreshOne retries transient courier failures; anything else is
// terminal for this cycle and the order is picked up again next run.
func (j *courierRefreshJob) refreshOne(ctx context.Context, orderID uuid.UUID) error {
	backoff := retry.WithMaxRetries(courierRefreshMaxRetries, retry.NewExponential(j.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := j.refresher.RefreshCourierStatus(ctx, orderID)
		if err == nil {
			return nil
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			return retry.RetryableError(err)
		}
		return err
	})
}
