package model

const (
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseRefunded  = "purchase.refunded"
)

// OutboxMessage is an event waiting to be shipped to the message broker.
// The outbox log is append-only; delivery progress lives in OutboxCursor.
type OutboxMessage struct {
	Key     string `json:"key"`
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload string `json:"payload"`
	Ts      int64  `json:"ts"`
}

// OutboxCursor records how many outbox messages were delivered and how many
// times the next one has failed.
type OutboxCursor struct {
	Offset  int `json:"offset"`
	Retries int `json:"retries"`
}

// PaymentEvent is the payload published for purchases and refunds.
type PaymentEvent struct {
	Event    string `json:"event"`
	UserID   int64  `json:"user_id"`
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
	Payload  string `json:"payload,omitempty"`
	RefundNo string `json:"refund_no,omitempty"`
	Ts       int64  `json:"ts"`
}
