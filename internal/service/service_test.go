package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
)

type sentInvoice struct {
	UserID  int64
	Invoice model.Invoice
}

type fakeMessenger struct {
	mu         sync.Mutex
	invoices   []sentInvoice
	prechecks  []string
	refunds    []string
	messages   map[int64][]string
	downloads  []int64
	invoiceErr error
	refundErr  error
	failChats  map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{messages: map[int64][]string{}, failChats: map[int64]bool{}}
}

func (f *fakeMessenger) SendInvoice(_ context.Context, userID int64, invoice model.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return f.invoiceErr
	}
	f.invoices = append(f.invoices, sentInvoice{UserID: userID, Invoice: invoice})
	return nil
}

func (f *fakeMessenger) AnswerPreCheckout(_ context.Context, queryID string, ok bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ok {
		f.prechecks = append(f.prechecks, queryID)
	}
	return nil
}

func (f *fakeMessenger) RefundStarPayment(_ context.Context, _ int64, chargeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return f.refundErr
	}
	f.refunds = append(f.refunds, chargeID)
	return nil
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return errors.New("bot was blocked by the user")
	}
	f.messages[chatID] = append(f.messages[chatID], text)
	return nil
}

func (f *fakeMessenger) SendDownload(_ context.Context, userID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, userID)
	return nil
}

type testEnv struct {
	repos     *repository.Repositories
	messenger *fakeMessenger
	settings  *SettingsService
	counters  *CounterService
	users     *UserService
	access    *AccessService
	ledger    *LedgerService
	pay       *PayService
	refunds   *RefundService
	admins    *AdminService
	content   *ContentService
	broadcast *BroadcastService
}

// testOffer prices the product at exactly 100 stars.
func testOffer() model.Offer {
	return model.Offer{
		Title:        "XTR Guide",
		Description:  "guide",
		Mode:         model.GuideModeURL,
		GuideURL:     "https://example.com/guide.pdf",
		Payload:      "guide_500",
		PriceUAH:     55,
		OldPriceUAH:  699,
		UAHPerStar:   0.55,
		TONPerStar:   0.0015,
		SalesEnabled: true,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repos := repository.Open(t.TempDir(), logger)
	m := metrics.New(prometheus.NewRegistry())
	messenger := newFakeMessenger()

	env := &testEnv{repos: repos, messenger: messenger}
	env.settings = NewSettingsService(repos.Settings, testOffer(), logger)
	env.counters = NewCounterService(repos.Counters)
	env.users = NewUserService(repos.Users, env.counters)
	env.access = NewAccessService(repos.Access)
	env.ledger = NewLedgerService(repos.Purchases, repos.Ledger, m, logger)
	outbox := NewOutboxService(repos.Outbox, "payment_events")
	env.pay = NewPayService(PayServiceDeps{
		Repos:     repos,
		Counters:  env.counters,
		Settings:  env.settings,
		Users:     env.users,
		Access:    env.access,
		Outbox:    outbox,
		Messenger: messenger,
		Metrics:   m,
		Logger:    logger,
	})
	env.refunds = NewRefundService(RefundServiceDeps{
		Repos:     repos,
		Settings:  env.settings,
		Outbox:    outbox,
		Messenger: messenger,
		Metrics:   m,
		Logger:    logger,
	})
	env.admins = NewAdminService(repos.Admins, []int64{1})
	env.content = NewContentService(repos.Content)
	env.broadcast = NewBroadcastService(env.users, repos.Alerts, messenger, 1000, m, logger)
	return env
}
