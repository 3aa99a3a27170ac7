package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferPriceStars(t *testing.T) {
	o := Offer{PriceUAH: 299, UAHPerStar: 0.55, TONPerStar: 0.0015}
	assert.Equal(t, int64(544), o.PriceStars())

	// 55 / 0.5 = 110 exactly, 11 / 2 = 5.5 rounds to even.
	assert.Equal(t, int64(110), Offer{PriceUAH: 55, UAHPerStar: 0.5}.PriceStars())
	assert.Equal(t, int64(6), Offer{PriceUAH: 11, UAHPerStar: 2}.PriceStars())
	assert.Equal(t, int64(2), Offer{PriceUAH: 5, UAHPerStar: 2}.PriceStars())
	assert.Equal(t, int64(0), Offer{PriceUAH: 5}.PriceStars())

	assert.Equal(t, "0.816", o.TONEstimate(544).String())
}

func TestSettingsDocumentApplyTo(t *testing.T) {
	price := int64(150)
	enabled := false
	base := Offer{PriceUAH: 299, OldPriceUAH: 699, GuideURL: "a", SalesEnabled: true}

	got := SettingsDocument{PriceUAH: &price, SalesEnabled: &enabled}.ApplyTo(base)
	assert.Equal(t, int64(150), got.PriceUAH)
	assert.Equal(t, int64(699), got.OldPriceUAH)
	assert.Equal(t, "a", got.GuideURL)
	assert.False(t, got.SalesEnabled)
}

func TestOrderStatusAcceptsLegacyValues(t *testing.T) {
	var rec OrderRecord
	require.NoError(t, json.Unmarshal([]byte(`{"user_id":1,"payload":"p","amount":5,"status":"успіх","ts":1,"reason":null}`), &rec))
	assert.Equal(t, OrderStatusSuccess, rec.Status)
	assert.Nil(t, rec.Reason)

	var s OrderStatus
	assert.Error(t, json.Unmarshal([]byte(`"paid"`), &s))
	assert.True(t, CanTransitionTo(OrderStatusCreated, OrderStatusError))
	assert.False(t, CanTransitionTo(OrderStatusSuccess, OrderStatusError))
}

func TestLedgerKindNormalize(t *testing.T) {
	assert.Equal(t, int64(-20), LedgerKindWithdrawal.Normalize(20))
	assert.Equal(t, int64(-20), LedgerKindWithdrawal.Normalize(-20))
	assert.Equal(t, int64(20), LedgerKindAward.Normalize(-20))
	assert.Equal(t, int64(-20), LedgerKindCorrection.Normalize(-20))
	assert.Equal(t, int64(-20), LedgerKindRefund.Normalize(-20))
	assert.False(t, LedgerKind("bonus").Valid())
}

func TestCountersDocumentRoundTripsFlatLayout(t *testing.T) {
	doc := NewCountersDocument()
	require.NoError(t, json.Unmarshal([]byte(`{"buy_clicks":2,"__users_buy_clicks":[5,6]}`), &doc))
	assert.Equal(t, int64(2), doc.Values[CounterBuyClicks])
	assert.Equal(t, []int64{5, 6}, doc.Seen[CounterBuyClicks])
	assert.Equal(t, int64(0), doc.Values[CounterBlockedBot])

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Contains(t, flat, "__users_buy_clicks")
	assert.Contains(t, flat, "blocked_bot")
}
