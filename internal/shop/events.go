package shop

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventOrderCreated = "OrderCreated"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID   string          `json:"order_id"`
	Namespace string          `json:"namespace"`
	Email     string          `json:"email"`
	Items     []ItemPrice     `json:"items"`
	Total     decimal.Decimal `json:"total"`
}

// NewEnvelope stamps a v1 envelope; payload must already be encoded.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload []byte) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

func OrderCreated(o Order) OrderCreatedPayload {
	p := OrderCreatedPayload{
		OrderID:   o.ID,
		Namespace: o.Namespace,
		Email:     o.Customer.Email,
		Total:     o.Total,
		Items:     make([]ItemPrice, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, ItemPrice{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price})
	}
	return p
}
