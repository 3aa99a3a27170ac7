package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"starshop/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	order, err := env.pay.CreateInvoice(ctx, model.ChatUser{ID: 42, Username: "bob"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCreated, order.Status)
	assert.Equal(t, int64(100), order.Amount)

	require.Len(t, env.messenger.invoices, 1)
	inv := env.messenger.invoices[0]
	assert.Equal(t, int64(42), inv.UserID)
	assert.Equal(t, model.CurrencyStars, inv.Invoice.Currency)
	assert.Equal(t, "guide_500", inv.Invoice.Payload)
	assert.Equal(t, int64(100), inv.Invoice.Amount)

	snap, err := env.counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.BuyClicks)

	// A second click by the same user does not move the unique counter.
	_, err = env.pay.CreateInvoice(ctx, model.ChatUser{ID: 42})
	require.NoError(t, err)
	snap, err = env.counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.BuyClicks)
}

func TestCreateInvoiceTransportFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.messenger.invoiceErr = errors.New("network down")

	order, err := env.pay.CreateInvoice(ctx, model.ChatUser{ID: 7})
	assert.ErrorIs(t, err, ErrTransport)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderStatusError, order.Status)

	orders, err := env.repos.Orders.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, model.OrderStatusCreated, orders[0].Status)
	assert.Equal(t, model.OrderStatusError, orders[1].Status)
	require.NotNil(t, orders[1].Reason)
	assert.Equal(t, "network down", *orders[1].Reason)

	snap, err := env.counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.PurchasesFail)
}

func TestCreateInvoiceSalesDisabled(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.settings.SetSalesEnabled(ctx, false)
	require.NoError(t, err)

	_, err = env.pay.CreateInvoice(ctx, model.ChatUser{ID: 7})
	assert.ErrorIs(t, err, ErrSalesDisabled)
	assert.Empty(t, env.messenger.invoices)
}

func TestConfirmPreCheckoutAlwaysApproves(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.pay.ConfirmPreCheckout(context.Background(), "q1"))
	assert.Equal(t, []string{"q1"}, env.messenger.prechecks)
}

func TestHandleSuccessfulPaymentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := model.ChatUser{ID: 42}
	payment := model.StarPayment{ChargeID: "c1", Payload: "guide_500", Currency: "XTR", Total: 100}

	purchase, err := env.pay.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	assert.Equal(t, int64(100), purchase.Amount)

	_, err = env.pay.HandleSuccessfulPayment(ctx, user, payment)
	assert.ErrorIs(t, err, ErrDuplicateCharge)

	purchases, err := env.repos.Purchases.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	balance, err := env.ledger.BalanceOf(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	has, err := env.access.HasAccess(ctx, 42)
	require.NoError(t, err)
	assert.True(t, has)

	snap, err := env.counters.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.PurchasesSuccess)
	assert.Equal(t, []int64{42}, env.messenger.downloads)

	pending, _, err := env.repos.Outbox.GetPendingMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.EventPurchaseCompleted, pending[0].Event)
}

func TestHandleSuccessfulPaymentConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const deliveries = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	recorded, duplicates := 0, 0
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 42}, model.StarPayment{ChargeID: "c1", Total: 100})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				recorded++
			case errors.Is(err, ErrDuplicateCharge):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, recorded)
	assert.Equal(t, deliveries-1, duplicates)
	balance, err := env.ledger.BalanceOf(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestHandleSuccessfulPaymentFallsBackToCurrentPrice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	purchase, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 5}, model.StarPayment{ChargeID: "c9"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), purchase.Amount)
	assert.Equal(t, "guide_500", purchase.Payload)

	_, err = env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 5}, model.StarPayment{})
	assert.ErrorIs(t, err, ErrInvalidPayment)
}

func TestHandleSuccessfulPaymentRecordsConfiguredPrice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	purchase, err := env.pay.HandleSuccessfulPayment(ctx, model.ChatUser{ID: 6}, model.StarPayment{ChargeID: "c2", Total: 150})
	require.NoError(t, err)
	assert.Equal(t, int64(100), purchase.Amount)
	assertBalance(t, env, 6, 100)
}

func TestPurchaseLedgerRefundScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	user := model.ChatUser{ID: 42}
	payment := model.StarPayment{ChargeID: "c1", Total: 100}

	_, err := env.pay.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	assertBalance(t, env, 42, 100)
	has, err := env.access.HasAccess(ctx, 42)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = env.ledger.AddEntry(ctx, 42, -20, model.LedgerKindCorrection, EntryOptions{Comment: "fee"})
	require.NoError(t, err)
	assertBalance(t, env, 42, 80)

	_, err = env.pay.HandleSuccessfulPayment(ctx, user, payment)
	require.ErrorIs(t, err, ErrDuplicateCharge)
	assertBalance(t, env, 42, 80)

	resp, err := env.refunds.Refund(ctx, &RefundRequest{ChargeID: "c1", RequestedBy: 1})
	require.NoError(t, err)
	assert.True(t, resp.Refunded)
	assert.Equal(t, int64(-100), resp.Amount)
	assertBalance(t, env, 42, -20)

	// Refunds leave access in place.
	has, err = env.access.HasAccess(ctx, 42)
	require.NoError(t, err)
	assert.True(t, has)
}

func assertBalance(t *testing.T, env *testEnv, userID, want int64) {
	t.Helper()
	got, err := env.ledger.BalanceOf(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, want, got, fmt.Sprintf("balance of %d", userID))
}
