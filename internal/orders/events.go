package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCompleted = "OrderCompleted"
	EventOrderFailed    = "OrderFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "order-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderSettledPayload struct {
	OrderID    int64     `json:"order_id"`
	Status     Status    `json:"status"`
	TotalPrice string    `json:"total_price"`
	Items      []ItemQty `json:"items"`
	Reason     string    `json:"reason,omitempty"` // jika failed
	Kind       Kind      `json:"kind,omitempty"`
}

// NewSettledEnvelope builds the event announcing a terminal order.
// settleErr is the error Settle returned, nil for completed orders.
func NewSettledEnvelope(producer, traceID string, order Order, settleErr error) (Envelope, error) {
	p := OrderSettledPayload{
		OrderID:    order.ID,
		Status:     order.Status,
		TotalPrice: order.TotalPrice.StringFixed(2),
		Items:      make([]ItemQty, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		p.Items = append(p.Items, ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	eventType := EventOrderCompleted
	if settleErr != nil {
		eventType = EventOrderFailed
		p.Reason = settleErr.Error()
		p.Kind = KindOf(settleErr)
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: fmt.Sprint(order.ID),
		Payload:       payload,
	}, nil
}
