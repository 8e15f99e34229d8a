package certification

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventStageAdvanced = "StageAdvanced"
	EventOrderFinished = "OrderFinished"
)

// Envelope wraps every published event. Payload holds the event-specific
// body; CorrelationID is the order id so per-order consumers can follow one
// thread.
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

type OrderCreatedPayload struct {
	OrderID       string    `json:"order_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ItemCount     int       `json:"item_count"`
	LastDeadline  time.Time `json:"last_deadline"`
}

type StageAdvancedPayload struct {
	OrderID           string `json:"order_id"`
	From              Stage  `json:"from"`
	To                Stage  `json:"to"`
	SubtractedSeconds int64  `json:"subtracted_seconds"`
	DelayedItems      int    `json:"delayed_items"`
}

type OrderFinishedPayload struct {
	OrderID  string    `json:"order_id"`
	ClosedAt time.Time `json:"closed_at"`
}
