package service

import (
	"context"

	"go.uber.org/zap"
)

// Notifier posts operational alerts, such as new purchases, to the
// configured alert chats. Delivery failures are logged only.
type Notifier struct {
	messenger Messenger
	chatIDs   []int64
	log       *zap.Logger
}

func NewNotifier(messenger Messenger, chatIDs []int64, logger *zap.Logger) *Notifier {
	return &Notifier{messenger: messenger, chatIDs: chatIDs, log: logger.With(zap.String("component", "notifier"))}
}

func (n *Notifier) Notify(ctx context.Context, text string) {
	if n == nil {
		return
	}
	for _, chatID := range n.chatIDs {
		if err := n.messenger.SendMessage(ctx, chatID, text); err != nil {
			n.log.Warn("alert not delivered", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}
