// Package audit records settlement events published by the order API.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	kafkax "github.com/ariefcatur/go-catalog-orders/internal/kafka"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
)

var recorded, _ = otel.Meter("github.com/ariefcatur/go-catalog-orders/internal/audit").
	Int64Counter("audit.settlements", metric.WithDescription("Settlement events recorded"))

// Deduper is satisfied by redisx.Deduper.
type Deduper interface {
	SeenBefore(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

type Service struct {
	Dedup  Deduper // optional
	Logger *slog.Logger
}

// HandleSettled dipasang sebagai handler consumer.
func (s *Service) HandleSettled(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType != orders.EventOrderCompleted && env.EventType != orders.EventOrderFailed {
		return nil // ignore
	}

	// 2) dedup via Redis (pakai event_id)
	if s.Dedup != nil {
		seen, err := s.Dedup.SeenBefore(ctx, env.EventID)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if seen {
			s.logger().Debug("duplicate settlement event skipped", "event_id", env.EventID)
			return nil
		}
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.OrderSettledPayload](env.Payload)
	if err != nil {
		if s.Dedup != nil {
			_ = s.Dedup.Forget(ctx, env.EventID)
		}
		return err
	}

	s.logger().Info("order settled",
		"event_id", env.EventID,
		"order_id", p.OrderID,
		"status", p.Status,
		"total_price", p.TotalPrice,
		"items", len(p.Items),
		"reason", p.Reason,
		"kind", p.Kind,
		"producer", env.Producer,
		"occurred_at", env.OccurredAt,
	)
	recorded.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(p.Status))))
	return nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
