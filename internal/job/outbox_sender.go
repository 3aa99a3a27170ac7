package job

import (
	"context"
	"sync"
	"time"

	"starshop/internal/metrics"
	"starshop/internal/model"
	"starshop/internal/repository"

	"go.uber.org/zap"
)

// Publisher delivers one message to the broker.
type Publisher interface {
	Publish(topic, key, value string) error
}

// OutboxSender ships outbox messages in write order. A message that keeps
// failing is retried on every tick until maxRetries, then moved to the dead
// letter log so later messages are not blocked forever.
type OutboxSender struct {
	repo       *repository.OutboxRepository
	publisher  Publisher
	metrics    *metrics.Metrics
	log        *zap.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	interval   time.Duration
	batchSize  int
	maxRetries int
}

func NewOutboxSender(repo *repository.OutboxRepository, publisher Publisher, interval time.Duration, batchSize, maxRetries int, m *metrics.Metrics, logger *zap.Logger) *OutboxSender {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &OutboxSender{
		repo:       repo,
		publisher:  publisher,
		metrics:    m,
		log:        logger.With(zap.String("component", "outbox_sender")),
		stopCh:     make(chan struct{}),
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	s.log.Info("outbox sender started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox sender stopping")
			return
		case <-s.stopCh:
			s.log.Info("outbox sender stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

// Stop ends Start. It is safe to call more than once.
func (s *OutboxSender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// processPendingMessages sends one batch and returns how many messages the
// cursor moved past.
func (s *OutboxSender) processPendingMessages(ctx context.Context) int {
	messages, cursor, err := s.repo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("load pending messages", zap.Error(err))
		return 0
	}

	done := 0
	for i, msg := range messages {
		retries := 0
		if i == 0 {
			retries = cursor.Retries
		}
		if !s.sendMessage(ctx, msg, retries) {
			break
		}
		done++
	}
	return done
}

// sendMessage reports whether the cursor moved past msg.
func (s *OutboxSender) sendMessage(ctx context.Context, msg model.OutboxMessage, retries int) bool {
	err := s.publisher.Publish(msg.Topic, msg.Key, msg.Payload)
	if err == nil {
		if err := s.repo.MarkAsSent(ctx); err != nil {
			s.log.Error("advance outbox cursor", zap.String("key", msg.Key), zap.Error(err))
			return false
		}
		s.metrics.Outbox(metrics.ResultSuccess)
		s.log.Debug("message sent", zap.String("topic", msg.Topic), zap.String("key", msg.Key))
		return true
	}

	s.log.Warn("message send failed", zap.String("key", msg.Key), zap.Int("retries", retries), zap.Error(err))

	if retries+1 >= s.maxRetries {
		if err := s.repo.MarkAsFailed(ctx, msg); err != nil {
			s.log.Error("move message to dead letter log", zap.String("key", msg.Key), zap.Error(err))
			return false
		}
		s.metrics.Outbox(metrics.ResultFailed)
		s.log.Error("message exceeded max retries", zap.String("key", msg.Key))
		return true
	}

	if _, err := s.repo.IncrementRetryCount(ctx); err != nil {
		s.log.Error("increment retry count", zap.String("key", msg.Key), zap.Error(err))
	}
	return false
}
