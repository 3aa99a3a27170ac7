package repository

import (
	"path/filepath"

	"go.uber.org/zap"
)

const (
	PurchasesFile    = "purchases.jsonl"
	OrdersFile       = "orders.jsonl"
	LedgerFile       = "ledger.jsonl"
	OutboxFile       = "outbox.jsonl"
	OutboxFailedFile = "outbox_failed.jsonl"
	AccessFile       = "access.json"
	SettingsFile     = "settings.json"
	UsersFile        = "users.json"
	AdminsFile       = "admins.json"
	CountersFile     = "metrics.json"
	AlertsFile       = "alerts.json"
	ContentFile      = "content.json"
	OutboxCursorFile = "outbox_cursor.json"
)

// Repositories bundles every file-backed store under one data directory.
type Repositories struct {
	Purchases *PurchaseRepository
	Orders    *OrderRepository
	Ledger    *LedgerRepository
	Access    *AccessRepository
	Outbox    *OutboxRepository
	Settings  *SettingsRepository
	Users     *UserRepository
	Admins    *AdminRepository
	Counters  *CounterRepository
	Alerts    *AlertRepository
	Content   *ContentRepository
}

func Open(dataDir string, logger *zap.Logger) *Repositories {
	path := func(name string) string { return filepath.Join(dataDir, name) }
	return &Repositories{
		Purchases: NewPurchaseRepository(path(PurchasesFile), logger),
		Orders:    NewOrderRepository(path(OrdersFile), logger),
		Ledger:    NewLedgerRepository(path(LedgerFile), logger),
		Access:    NewAccessRepository(path(AccessFile)),
		Outbox:    NewOutboxRepository(path(OutboxFile), path(OutboxFailedFile), path(OutboxCursorFile), logger),
		Settings:  NewSettingsRepository(path(SettingsFile)),
		Users:     NewUserRepository(path(UsersFile)),
		Admins:    NewAdminRepository(path(AdminsFile)),
		Counters:  NewCounterRepository(path(CountersFile)),
		Alerts:    NewAlertRepository(path(AlertsFile)),
		Content:   NewContentRepository(path(ContentFile)),
	}
}
