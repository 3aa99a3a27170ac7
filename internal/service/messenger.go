package service

import (
	"context"

	"starshop/internal/model"
)

// Messenger is the outbound side of the chat platform. Every call may fail.
type Messenger interface {
	SendInvoice(ctx context.Context, userID int64, invoice model.Invoice) error
	AnswerPreCheckout(ctx context.Context, queryID string, ok bool) error
	RefundStarPayment(ctx context.Context, userID int64, chargeID string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDownload(ctx context.Context, userID int64, url string) error
}
