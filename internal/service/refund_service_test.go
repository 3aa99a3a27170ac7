package service

import (
	"context"
	"errors"
	"testing"

	"starshop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefundUnknownCharge(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.refunds.Refund(context.Background(), &RefundRequest{ChargeID: "nope"})
	assert.ErrorIs(t, err, ErrChargeNotFound)
	assert.Empty(t, env.messenger.refunds)
}

func TestRefundRejectedByProviderWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 3}, model.StarPayment{ChargeID: "c1", Total: 100})
	require.NoError(t, err)
	env.messenger.refundErr = errors.New("CHARGE_ALREADY_REFUNDED")

	_, err = env.refunds.Refund(ctx, &RefundRequest{ChargeID: "c1"})
	assert.ErrorIs(t, err, ErrRefundRejected)

	entries, err := env.ledger.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assertBalance(t, env, 3, 100)
}

func TestRefundTwiceIsRejectedLocally(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 3}, model.StarPayment{ChargeID: "c1", Total: 100})
	require.NoError(t, err)

	_, err = env.refunds.Refund(ctx, &RefundRequest{ChargeID: "c1"})
	require.NoError(t, err)
	_, err = env.refunds.Refund(ctx, &RefundRequest{ChargeID: "c1"})
	assert.ErrorIs(t, err, ErrAlreadyRefunded)

	assert.Equal(t, []string{"c1"}, env.messenger.refunds)
	assertBalance(t, env, 3, 0)
}

func TestRefundUsesCurrentPrice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 3}, model.StarPayment{ChargeID: "c1", Total: 100})
	require.NoError(t, err)

	// 110 UAH at 0.55 UAH per star is 200 stars.
	_, err = env.settings.SetPrice(ctx, 110, nil)
	require.NoError(t, err)

	resp, err := env.refunds.Refund(ctx, &RefundRequest{ChargeID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int64(-200), resp.Amount)
	assertBalance(t, env, 3, -100)
}
