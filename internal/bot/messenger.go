package bot

import (
	"context"
	"fmt"
	"strconv"

	"starshop/internal/model"

	tele "gopkg.in/telebot.v3"
)

const downloadText = "Дякуємо за покупку! 🎉\nВаш гайд доступний за кнопкою нижче."

// Messenger sends outbound calls through the Telegram Bot API.
type Messenger struct {
	tb *tele.Bot
}

func NewMessenger(tb *tele.Bot) *Messenger {
	return &Messenger{tb: tb}
}

func (m *Messenger) SendInvoice(ctx context.Context, userID int64, invoice model.Invoice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv := &tele.Invoice{
		Title:       invoice.Title,
		Description: invoice.Description,
		Payload:     invoice.Payload,
		Currency:    invoice.Currency,
		Prices:      []tele.Price{{Label: invoice.Label, Amount: int(invoice.Amount)}},
	}
	if _, err := m.tb.Send(&tele.User{ID: userID}, inv); err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	return nil
}

func (m *Messenger) AnswerPreCheckout(ctx context.Context, queryID string, ok bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	query := &tele.PreCheckoutQuery{ID: queryID}
	if ok {
		return m.tb.Accept(query)
	}
	return m.tb.Accept(query, "Оплата зараз недоступна")
}

// RefundStarPayment calls refundStarPayment, which telebot has no typed
// wrapper for.
func (m *Messenger) RefundStarPayment(ctx context.Context, userID int64, chargeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := map[string]string{
		"user_id":                    strconv.FormatInt(userID, 10),
		"telegram_payment_charge_id": chargeID,
	}
	if _, err := m.tb.Raw("refundStarPayment", params); err != nil {
		return fmt.Errorf("refund star payment: %w", err)
	}
	return nil
}

func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.tb.Send(&tele.Chat{ID: chatID}, text)
	return err
}

func (m *Messenger) SendDownload(ctx context.Context, userID int64, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.tb.Send(&tele.User{ID: userID}, downloadText, downloadMarkup(true, url))
	return err
}
