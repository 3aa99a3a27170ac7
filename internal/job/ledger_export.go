package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"starshop/internal/infrastructure/database"
	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const exportBatchSize = 500

// LedgerExportJob mirrors the purchase and ledger logs into a SQL database
// for reporting. The files stay authoritative; the job only appends rows it
// has not copied yet.
type LedgerExportJob struct {
	db        *gorm.DB
	purchases *repository.PurchaseRepository
	ledger    *repository.LedgerRepository
	metrics   *metrics.Metrics
	log       *zap.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	interval  time.Duration
}

func NewLedgerExportJob(db *gorm.DB, purchases *repository.PurchaseRepository, ledger *repository.LedgerRepository, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *LedgerExportJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &LedgerExportJob{
		db:        db,
		purchases: purchases,
		ledger:    ledger,
		metrics:   m,
		log:       logger.With(zap.String("component", "ledger_export")),
		stopCh:    make(chan struct{}),
		interval:  interval,
	}
}

func (j *LedgerExportJob) Start(ctx context.Context) {
	j.log.Info("ledger export started", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			j.log.Info("ledger export stopping")
			return
		case <-j.stopCh:
			j.log.Info("ledger export stopped")
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *LedgerExportJob) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
}

func (j *LedgerExportJob) runOnce(ctx context.Context) {
	if _, err := j.ExportPurchases(ctx); err != nil {
		j.log.Error("export purchases", zap.Error(err))
	}
	if _, err := j.ExportLedger(ctx); err != nil {
		j.log.Error("export ledger", zap.Error(err))
	}
}

// ExportPurchases copies purchases not yet in the purchases table and
// returns the number of inserted rows.
func (j *LedgerExportJob) ExportPurchases(ctx context.Context) (int64, error) {
	var exported int64
	if err := j.db.WithContext(ctx).Model(&database.Purchase{}).Count(&exported).Error; err != nil {
		return 0, fmt.Errorf("count purchases: %w", err)
	}

	var rows []database.Purchase
	var idx int64
	err := j.purchases.Scan(ctx, func(rec model.PurchaseRecord) bool {
		idx++
		if idx <= exported {
			return true
		}
		rows = append(rows, database.Purchase{
			ChargeID: rec.ChargeID,
			UserID:   rec.UserID,
			Amount:   rec.Amount,
			Payload:  rec.Payload,
			PaidAt:   time.Unix(rec.Ts, 0).UTC(),
		})
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "charge_id"}}, DoNothing: true}).
		CreateInBatches(rows, exportBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("insert purchases: %w", result.Error)
	}
	j.metrics.ExportedRows("purchases", int(result.RowsAffected))
	j.log.Info("purchases exported", zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}

// ExportLedger copies ledger entries past the highest exported sequence.
func (j *LedgerExportJob) ExportLedger(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := j.db.WithContext(ctx).Model(&database.LedgerEntry{}).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, fmt.Errorf("read ledger watermark: %w", err)
	}

	var rows []database.LedgerEntry
	var seq int64
	err = j.ledger.Scan(ctx, func(rec model.LedgerRecord) bool {
		seq++
		if seq <= maxSeq {
			return true
		}
		rows = append(rows, database.LedgerEntry{
			Seq:      seq,
			UserID:   rec.UserID,
			Amount:   rec.Amount,
			Kind:     string(rec.Kind),
			ChargeID: rec.ChargeID,
			Comment:  rec.Comment,
			EntryAt:  time.Unix(rec.Ts, 0).UTC(),
		})
		return true
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	result := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "seq"}}, DoNothing: true}).
		CreateInBatches(rows, exportBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("insert ledger entries: %w", result.Error)
	}
	j.metrics.ExportedRows("ledger_entries", int(result.RowsAffected))
	j.log.Info("ledger entries exported", zap.Int64("rows", result.RowsAffected))
	return result.RowsAffected, nil
}
