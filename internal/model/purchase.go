package model

// PurchaseRecord is written exactly once per successful payment. ChargeID is
// the provider-issued idempotency key.
type PurchaseRecord struct {
	UserID   int64  `json:"user_id"`
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"` // stars, always positive
	Payload  string `json:"payload"`
	Ts       int64  `json:"ts"`
}
