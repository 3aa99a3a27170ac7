package repository

import (
	"context"

	"starshop/internal/infrastructure/filestore"
	"starshop/internal/model"

	"go.uber.org/zap"
)

// OutboxRepository stores outgoing events in an append-only log. Delivery
// progress is a cursor document; messages that exhaust their retries are
// copied to a dead letter log and skipped.
type OutboxRepository struct {
	log    *filestore.Log[model.OutboxMessage]
	failed *filestore.Log[model.OutboxMessage]
	cursor *filestore.Document[model.OutboxCursor]
}

func NewOutboxRepository(path, failedPath, cursorPath string, logger *zap.Logger) *OutboxRepository {
	return &OutboxRepository{
		log:    filestore.NewLog[model.OutboxMessage](path, logger),
		failed: filestore.NewLog[model.OutboxMessage](failedPath, logger),
		cursor: filestore.NewDocument[model.OutboxCursor](cursorPath, nil),
	}
}

func (r *OutboxRepository) Create(ctx context.Context, msg model.OutboxMessage) error {
	return r.log.Append(ctx, msg)
}

// GetPendingMessages returns up to limit undelivered messages in write order
// together with the current cursor.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]model.OutboxMessage, model.OutboxCursor, error) {
	cursor, err := r.cursor.Read(ctx)
	if err != nil {
		return nil, cursor, err
	}

	var messages []model.OutboxMessage
	idx := 0
	err = r.log.Scan(ctx, func(msg model.OutboxMessage) bool {
		if idx >= cursor.Offset {
			messages = append(messages, msg)
		}
		idx++
		return limit <= 0 || len(messages) < limit
	})
	return messages, cursor, err
}

// MarkAsSent moves the cursor past the next message and resets its retries.
func (r *OutboxRepository) MarkAsSent(ctx context.Context) error {
	_, err := r.cursor.Update(ctx, func(c *model.OutboxCursor) error {
		c.Offset++
		c.Retries = 0
		return nil
	})
	return err
}

// IncrementRetryCount records a failed attempt and returns the new count.
func (r *OutboxRepository) IncrementRetryCount(ctx context.Context) (int, error) {
	c, err := r.cursor.Update(ctx, func(c *model.OutboxCursor) error {
		c.Retries++
		return nil
	})
	return c.Retries, err
}

// MarkAsFailed copies msg to the dead letter log and moves past it.
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, msg model.OutboxMessage) error {
	if err := r.failed.Append(ctx, msg); err != nil {
		return err
	}
	return r.MarkAsSent(ctx)
}

func (r *OutboxRepository) GetFailedMessages(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	return r.failed.ReadAll(ctx, limit)
}
