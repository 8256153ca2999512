package orders

import (
	"context"
	"log/slog"
)

// EventPublisher ships settlement events; kafka.Producer implements it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, env Envelope) error
}

// ViewInvalidator drops cached read models of an order.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, orderID int64)
}

type ServiceOption func(*Service)

func WithPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithViewInvalidator(v ViewInvalidator) ServiceOption {
	return func(s *Service) { s.views = v }
}

func WithProducerName(name string) ServiceOption {
	return func(s *Service) { s.producerName = name }
}

// Service places orders: assemble, then settle.
type Service struct {
	assembler    *Assembler
	settler      *Settler
	publisher    EventPublisher
	views        ViewInvalidator
	producerName string
	logger       *slog.Logger
}

func NewService(store OrderRepository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		assembler:    NewAssembler(store),
		settler:      NewSettler(store, logger),
		producerName: "order-api",
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder returns the settled order. When assembly fails no order exists and
// the zero Order is returned; when settlement fails the failed order is
// returned alongside the error.
func (s *Service) PlaceOrder(ctx context.Context, req Requirements, traceID string) (Order, error) {
	order, err := s.assembler.Assemble(ctx, req)
	if err != nil {
		return Order{}, err
	}

	settleErr := s.settler.Settle(ctx, &order, req)

	if s.views != nil {
		s.views.Invalidate(ctx, order.ID)
	}
	s.publish(ctx, order, settleErr, traceID)

	if settleErr != nil {
		return order, settleErr
	}
	s.logger.Info("order created", "order_id", order.ID, "total_price", order.TotalPrice.StringFixed(2), "items", len(order.Items))
	return order, nil
}

func (s *Service) publish(ctx context.Context, order Order, settleErr error, traceID string) {
	if s.publisher == nil {
		return
	}
	env, err := NewSettledEnvelope(s.producerName, traceID, order, settleErr)
	if err != nil {
		s.logger.Error("failed to build settlement event", "error", err, "order_id", order.ID)
		return
	}
	if err := s.publisher.PublishEvent(ctx, env); err != nil {
		s.logger.Error("failed to publish settlement event", "error", err, "order_id", order.ID)
	}
}
