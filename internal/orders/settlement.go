package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ariefcatur/go-catalog-orders/internal/orders"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	settlementCount, _ = meter.Int64Counter("orders.settlements",
		metric.WithDescription("Settled orders by outcome"))
	settlementDuration, _ = meter.Float64Histogram("orders.settlement.duration",
		metric.WithDescription("Time spent settling an order"),
		metric.WithUnit("s"))
)

type settlementStore interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error
}

// Settler locks product rows, checks and deducts stock and finalizes the
// order. Stock and total are all-or-nothing; the terminal status always sticks.
type Settler struct {
	store  settlementStore
	logger *slog.Logger
}

func NewSettler(store settlementStore, logger *slog.Logger) *Settler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settler{store: store, logger: logger}
}

// Settle moves a pending order to completed or failed. On failure the returned
// error is an *Error and order.Status is StatusFailed with TotalPrice untouched.
func (s *Settler) Settle(ctx context.Context, order *Order, req Requirements) error {
	ctx, span := tracer.Start(ctx, "orders.settle", trace.WithAttributes(
		attribute.Int64("order.id", order.ID),
		attribute.Int("order.lines", req.Len()),
	))
	defer span.End()
	start := time.Now()

	if !CanTransition(order.Status, StatusCompleted) {
		err := Unexpected(fmt.Errorf("order %d is already %s", order.ID, order.Status))
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	var total decimal.Decimal
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		products, err := tx.LockProducts(ctx, req.IDs())
		if err != nil {
			return err
		}
		if len(products) != req.Len() {
			return ErrProductNotFound
		}

		sum := decimal.Zero
		for _, p := range products {
			qty, _ := req.Quantity(p.ID)
			if p.Stock < qty {
				return InsufficientStock(p.Name)
			}
			if err := tx.UpdateStock(ctx, p.ID, p.Stock-qty); err != nil {
				return fmt.Errorf("update stock of product %d: %w", p.ID, err)
			}
			sum = sum.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
		}

		if err := tx.FinalizeOrder(ctx, order.ID, sum, StatusCompleted); err != nil {
			return fmt.Errorf("finalize order %d: %w", order.ID, err)
		}
		total = sum
		return nil
	})
	if err == nil {
		order.TotalPrice = total
		order.Status = StatusCompleted
		s.record(ctx, start, StatusCompleted, "")
		s.logger.Debug("order settled", "order_id", order.ID, "total_price", total.String())
		return nil
	}

	settleErr := classify(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, settleErr.Error())

	// the failure marker must survive the rollback and a cancelled request
	if ferr := s.store.UpdateOrderStatus(context.WithoutCancel(ctx), order.ID, StatusFailed); ferr != nil {
		s.logger.Error("failed to mark order as failed", "error", ferr, "order_id", order.ID)
		return errors.Join(settleErr, ferr)
	}
	order.Status = StatusFailed
	s.record(ctx, start, StatusFailed, KindOf(settleErr))

	if KindOf(settleErr) == KindUnexpected {
		s.logger.Error("order settlement failed", "error", err, "order_id", order.ID)
	} else {
		s.logger.Info("order settlement rejected", "reason", settleErr.Error(), "kind", KindOf(settleErr), "order_id", order.ID)
	}
	return settleErr
}

func (s *Settler) record(ctx context.Context, start time.Time, outcome Status, kind Kind) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("kind", string(kind)),
	)
	settlementCount.Add(ctx, 1, attrs)
	settlementDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}
