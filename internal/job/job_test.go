package job

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"starshop/internal/config"
	"starshop/internal/infrastructure/database"
	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePublisher struct {
	mu       sync.Mutex
	sent     []string
	failKeys map[string]bool
}

func (p *fakePublisher) Publish(_, key, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failKeys[key] {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, key)
	return nil
}

func newOutbox(t *testing.T) *repository.OutboxRepository {
	t.Helper()
	dir := t.TempDir()
	return repository.NewOutboxRepository(
		filepath.Join(dir, repository.OutboxFile),
		filepath.Join(dir, repository.OutboxFailedFile),
		filepath.Join(dir, repository.OutboxCursorFile),
		nil,
	)
}

func enqueue(t *testing.T, repo *repository.OutboxRepository, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, repo.Create(context.Background(), model.OutboxMessage{
			Key:     key,
			Topic:   "payment-events",
			Event:   model.EventPurchaseCompleted,
			Payload: `{"charge_id":"` + key + `"}`,
		}))
	}
}

func TestOutboxSenderDeliversInOrder(t *testing.T) {
	ctx := context.Background()
	repo := newOutbox(t)
	enqueue(t, repo, "k1", "k2", "k3")

	pub := &fakePublisher{}
	m := metrics.New(prometheus.NewRegistry())
	sender := NewOutboxSender(repo, pub, time.Second, 2, 3, m, zaptest.NewLogger(t))

	assert.Equal(t, 2, sender.processPendingMessages(ctx))
	assert.Equal(t, 1, sender.processPendingMessages(ctx))
	assert.Equal(t, 0, sender.processPendingMessages(ctx))

	assert.Equal(t, []string{"k1", "k2", "k3"}, pub.sent)

	pending, _, err := repo.GetPendingMessages(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxSenderRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	repo := newOutbox(t)
	enqueue(t, repo, "bad", "good")

	pub := &fakePublisher{failKeys: map[string]bool{"bad": true}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sender := NewOutboxSender(repo, pub, time.Second, 10, 3, m, zaptest.NewLogger(t))

	// The failing head blocks the batch until it exhausts its retries.
	assert.Equal(t, 0, sender.processPendingMessages(ctx))
	assert.Equal(t, 0, sender.processPendingMessages(ctx))
	assert.Empty(t, pub.sent)

	assert.Equal(t, 2, sender.processPendingMessages(ctx))
	assert.Equal(t, []string{"good"}, pub.sent)

	failed, err := repo.GetFailedMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Key)
	assert.Equal(t, 1.0, counterValue(t, reg, "starshop_outbox_messages_total", metrics.ResultFailed))
}

func TestOutboxSenderStartStop(t *testing.T) {
	repo := newOutbox(t)
	enqueue(t, repo, "k1")
	pub := &fakePublisher{}
	sender := NewOutboxSender(repo, pub, 10*time.Millisecond, 10, 3, nil, zaptest.NewLogger(t))

	done := make(chan struct{})
	go func() {
		sender.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.sent) == 1
	}, time.Second, 10*time.Millisecond)

	sender.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender did not stop")
	}
	assert.NotPanics(t, sender.Stop)
}

func TestLedgerExportStopTwice(t *testing.T) {
	log := zaptest.NewLogger(t)
	repos := repository.Open(filepath.Join(t.TempDir(), "data"), log)
	export := NewLedgerExportJob(nil, repos.Purchases, repos.Ledger, time.Minute, nil, log)

	export.Stop()
	assert.NotPanics(t, export.Stop)
}

func TestLedgerExportCopiesNewRowsOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	log := zaptest.NewLogger(t)
	repos := repository.Open(filepath.Join(dir, "data"), log)

	db, err := database.Open(config.ExportConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(dir, "report.db"),
	}, log)
	require.NoError(t, err)

	require.NoError(t, repos.Purchases.Create(ctx, model.PurchaseRecord{UserID: 1, ChargeID: "c1", Amount: 100, Payload: "guide", Ts: 1700000000}))
	require.NoError(t, repos.Ledger.Create(ctx, model.LedgerRecord{UserID: 1, Amount: -20, Kind: model.LedgerKindWithdrawal, Ts: 1700000100}))

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	export := NewLedgerExportJob(db, repos.Purchases, repos.Ledger, time.Minute, m, log)

	n, err := export.ExportPurchases(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = export.ExportLedger(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Second run with nothing new is a no-op.
	n, err = export.ExportPurchases(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	charge := "c1"
	require.NoError(t, repos.Purchases.Create(ctx, model.PurchaseRecord{UserID: 2, ChargeID: "c2", Amount: 50, Ts: 1700000200}))
	require.NoError(t, repos.Ledger.Create(ctx, model.LedgerRecord{UserID: 1, Amount: -100, Kind: model.LedgerKindRefund, ChargeID: &charge, Ts: 1700000300}))

	n, err = export.ExportPurchases(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = export.ExportLedger(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var entries []database.LedgerEntry
	require.NoError(t, db.Order("seq").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.EqualValues(t, 2, entries[1].Seq)
	assert.Equal(t, "refund", entries[1].Kind)
	require.NotNil(t, entries[1].ChargeID)
	assert.Equal(t, "c1", *entries[1].ChargeID)

	var purchases int64
	require.NoError(t, db.Model(&database.Purchase{}).Count(&purchases).Error)
	assert.EqualValues(t, 2, purchases)
	assert.Equal(t, 2.0, counterValue(t, reg, "starshop_export_rows_total", "purchases"))
}

// counterValue reads the single-label counter child with the given label value.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetValue() == label {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
