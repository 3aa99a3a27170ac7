package model

// AccessRecord is the current entitlement of one user. It is overwritten in
// place on every grant.
type AccessRecord struct {
	HasAccess    bool   `json:"has_access"`
	LastChargeID string `json:"last_charge_id"`
	Ts           int64  `json:"ts"`
}

// AccessDocument maps decimal user ids to their access record.
type AccessDocument map[string]AccessRecord
