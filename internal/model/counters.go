package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CounterUniqueUsersStarted = "unique_users_started"
	CounterBuyClicks          = "buy_clicks"
	CounterPurchasesSuccess   = "purchases_success"
	CounterPurchasesFail      = "purchases_fail"
	CounterBlockedBot         = "blocked_bot"
)

const seenKeyPrefix = "__users_"

// CountersDocument is the persisted counter set. Unique counters keep the
// user ids already counted under Seen[key]. On disk both live in one flat
// object, the seen sets under "__users_<key>".
type CountersDocument struct {
	Values map[string]int64
	Seen   map[string][]int64
}

func NewCountersDocument() CountersDocument {
	return CountersDocument{
		Values: map[string]int64{
			CounterUniqueUsersStarted: 0,
			CounterBuyClicks:          0,
			CounterPurchasesSuccess:   0,
			CounterPurchasesFail:      0,
			CounterBlockedBot:         0,
		},
		Seen: map[string][]int64{},
	}
}

func (d CountersDocument) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d.Values)+len(d.Seen))
	for k, v := range d.Values {
		flat[k] = v
	}
	for k, ids := range d.Seen {
		flat[seenKeyPrefix+k] = ids
	}
	return json.Marshal(flat)
}

func (d *CountersDocument) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if d.Values == nil {
		d.Values = map[string]int64{}
	}
	if d.Seen == nil {
		d.Seen = map[string][]int64{}
	}
	for k, raw := range flat {
		if key, ok := strings.CutPrefix(k, seenKeyPrefix); ok {
			var ids []int64
			if err := json.Unmarshal(raw, &ids); err != nil {
				return fmt.Errorf("counter %s: %w", k, err)
			}
			d.Seen[key] = ids
			continue
		}
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("counter %s: %w", k, err)
		}
		d.Values[k] = v
	}
	return nil
}

// Snapshot returns the well-known counters.
func (d CountersDocument) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		UniqueUsersStarted: d.Values[CounterUniqueUsersStarted],
		BuyClicks:          d.Values[CounterBuyClicks],
		PurchasesSuccess:   d.Values[CounterPurchasesSuccess],
		PurchasesFail:      d.Values[CounterPurchasesFail],
		BlockedBot:         d.Values[CounterBlockedBot],
	}
}

// CountersSnapshot is the read-only view shown in stats.
type CountersSnapshot struct {
	UniqueUsersStarted int64 `json:"unique_users_started"`
	BuyClicks          int64 `json:"buy_clicks"`
	PurchasesSuccess   int64 `json:"purchases_success"`
	PurchasesFail      int64 `json:"purchases_fail"`
	BlockedBot         int64 `json:"blocked_bot"`
}

// AlertsDocument tallies broadcast deliveries.
type AlertsDocument struct {
	Sent   int64 `json:"sent"`
	Failed int64 `json:"failed"`
}

// ContentDocument holds admin-edited texts. Nil fields fall back to defaults.
type ContentDocument struct {
	PageOne *string `json:"page_one,omitempty"`
	FAQ     *string `json:"faq,omitempty"`
}
