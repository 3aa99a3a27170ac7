package database

import (
	"fmt"
	"time"

	"starshop/internal/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Purchase is the reporting copy of a purchase log line.
type Purchase struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	ChargeID  string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	UserID    int64     `gorm:"index;not null"`
	Amount    int64     `gorm:"not null"`
	Payload   string    `gorm:"type:varchar(64)"`
	PaidAt    time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (Purchase) TableName() string {
	return "purchases"
}

// LedgerEntry is the reporting copy of a ledger log line. Seq is the 1-based
// position of the line among decoded ledger records.
type LedgerEntry struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Seq       int64     `gorm:"uniqueIndex;not null"`
	UserID    int64     `gorm:"index;not null"`
	Amount    int64     `gorm:"not null"`
	Kind      string    `gorm:"type:varchar(32);index;not null"`
	ChargeID  *string   `gorm:"type:varchar(128)"`
	Comment   *string   `gorm:"type:varchar(512)"`
	EntryAt   time.Time `gorm:"not null"`
	CreatedAt time.Time
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Open connects to the reporting database and migrates its tables.
func Open(cfg config.ExportConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.MySQL.User,
				cfg.MySQL.Password,
				cfg.MySQL.Host,
				cfg.MySQL.Port,
				cfg.MySQL.Database,
			)
		}
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported export driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "mysql" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&Purchase{}, &LedgerEntry{}); err != nil {
		return nil, fmt.Errorf("migrate reporting tables: %w", err)
	}

	log.Info("reporting database ready", zap.String("driver", cfg.Driver))
	return db, nil
}
