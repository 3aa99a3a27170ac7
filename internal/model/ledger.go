package model

// LedgerKind names a manual or system balance adjustment.
type LedgerKind string

const (
	LedgerKindWithdrawal LedgerKind = "withdrawal"
	LedgerKindAward      LedgerKind = "award"
	LedgerKindCorrection LedgerKind = "correction"
	LedgerKindRefund     LedgerKind = "refund"
)

// Valid reports whether k is one of the known kinds.
func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerKindWithdrawal, LedgerKindAward, LedgerKindCorrection, LedgerKindRefund:
		return true
	}
	return false
}

// Normalize applies the sign convention of the kind: withdrawals are always
// debits, awards always credits, corrections and refunds pass through.
func (k LedgerKind) Normalize(amount int64) int64 {
	switch k {
	case LedgerKindWithdrawal:
		return -abs(amount)
	case LedgerKindAward:
		return abs(amount)
	default:
		return amount
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// LedgerRecord is an append-only signed adjustment. Negative amounts are debits.
type LedgerRecord struct {
	UserID   int64      `json:"user_id"`
	Amount   int64      `json:"amount"`
	Kind     LedgerKind `json:"kind"`
	ChargeID *string    `json:"charge_id"`
	Comment  *string    `json:"comment"`
	Ts       int64      `json:"ts"`
}
