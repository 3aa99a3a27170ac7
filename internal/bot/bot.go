package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"starshop/internal/config"
	"starshop/internal/model"
	"starshop/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const (
	handlerTimeout = 15 * time.Second
	guestName      = "гість"
)

// Bot wraps the telebot instance and the user-facing handlers.
type Bot struct {
	tb  *tele.Bot
	cfg config.BotConfig
	svc Services
	log *zap.Logger
}

// Services bundles the services the handlers call.
type Services struct {
	Pay      *service.PayService
	Ledger   *service.LedgerService
	Users    *service.UserService
	Counters *service.CounterService
	Access   *service.AccessService
	Settings *service.SettingsService
	Content  *service.ContentService
	Admins   *service.AdminService
}

// NewTelebot creates the long-polling telebot client. It is built before the
// services so that the Messenger can be shared with them.
func NewTelebot(cfg config.BotConfig, logger *zap.Logger) (*tele.Bot, error) {
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Sender() != nil {
				fields = append(fields, zap.Int64("user_id", c.Sender().ID))
			}
			logger.Error("telebot error", fields...)
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}
	return tb, nil
}

// New registers the handlers on tb.
func New(tb *tele.Bot, cfg config.BotConfig, svc Services, logger *zap.Logger) *Bot {
	b := &Bot{
		tb:  tb,
		cfg: cfg,
		svc: svc,
		log: logger.With(zap.String("component", "bot")),
	}
	b.registerHandlers()
	return b
}

// Start begins long polling and blocks until Stop.
func (b *Bot) Start() {
	if err := b.tb.RemoveWebhook(true); err != nil {
		b.log.Warn("failed to remove webhook before long polling", zap.Error(err))
	}
	b.log.Info("starting telegram bot", zap.String("username", b.tb.Me.Username))
	b.tb.Start()
}

func (b *Bot) Stop() {
	b.tb.Stop()
}

func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle(&tele.Btn{Unique: btnMain}, b.handleMainPage)
	b.tb.Handle(&tele.Btn{Unique: btnFAQ}, b.handleFAQ)
	b.tb.Handle(&tele.Btn{Unique: btnBuy}, b.handleBuy)
	b.tb.Handle(&tele.Btn{Unique: btnDownload}, b.handleDownload)
	b.tb.Handle(&tele.Btn{Unique: btnAdmin}, b.handleAdminMenu)
	b.tb.Handle(&tele.Btn{Unique: btnToggleSales}, b.handleToggleSales)
	b.tb.Handle(tele.OnCheckout, b.handleCheckout)
	b.tb.Handle(tele.OnPayment, b.handlePayment)
	b.tb.Handle(tele.OnMyChatMember, b.handleMyChatMember)
}

func (b *Bot) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

// ── pages ─────────────────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	ctx, cancel := b.context()
	defer cancel()

	if err := b.svc.Users.RegisterStart(ctx, chatUser(sender)); err != nil {
		b.log.Warn("register start failed", zap.Int64("user_id", sender.ID), zap.Error(err))
	}
	return b.sendMainPage(ctx, c)
}

func (b *Bot) handleMainPage(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	_ = c.Respond()
	return b.sendMainPage(ctx, c)
}

func (b *Bot) sendMainPage(ctx context.Context, c tele.Context) error {
	sender := c.Sender()
	balance, err := b.svc.Ledger.BalanceOf(ctx, sender.ID)
	if err != nil {
		b.log.Error("compute balance failed", zap.Int64("user_id", sender.ID), zap.Error(err))
	}
	text, err := b.svc.Content.RenderPageOne(ctx, displayName(sender), balance)
	if err != nil {
		b.log.Warn("load page text failed", zap.Error(err))
	}
	markup := pageMarkup(b.svc.Settings.Current(), true, b.isAdmin(ctx, sender.ID))
	return c.Send(b.page("main.jpg", text), markup)
}

func (b *Bot) handleFAQ(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	_ = c.Respond()
	text, err := b.svc.Content.FAQ(ctx)
	if err != nil {
		b.log.Warn("load faq failed", zap.Error(err))
	}
	markup := pageMarkup(b.svc.Settings.Current(), false, b.isAdmin(ctx, c.Sender().ID))
	return c.Send(b.page("faq.jpg", text), markup)
}

// page returns a captioned photo when the asset exists, else plain text.
func (b *Bot) page(asset, text string) interface{} {
	if b.cfg.AssetsDir == "" {
		return text
	}
	path := filepath.Join(b.cfg.AssetsDir, asset)
	if _, err := os.Stat(path); err != nil {
		return text
	}
	return &tele.Photo{File: tele.FromDisk(path), Caption: text}
}

// ── purchase flow ─────────────────────────────────────────────────────

func (b *Bot) handleBuy(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	sender := c.Sender()
	_, err := b.svc.Pay.CreateInvoice(ctx, chatUser(sender))
	switch {
	case errors.Is(err, service.ErrSalesDisabled):
		return c.Respond(&tele.CallbackResponse{Text: "Продаж тимчасово недоступний", ShowAlert: true})
	case errors.Is(err, service.ErrTransport):
		_ = c.Respond()
		return c.Send("Не вдалося створити рахунок. Спробуйте пізніше.")
	case err != nil:
		b.log.Error("create invoice failed", zap.Int64("user_id", sender.ID), zap.Error(err))
		_ = c.Respond()
		return c.Send("Сталася помилка. Спробуйте пізніше.")
	}
	return c.Respond()
}

func (b *Bot) handleCheckout(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	return b.svc.Pay.ConfirmPreCheckout(ctx, c.PreCheckoutQuery().ID)
}

func (b *Bot) handlePayment(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Payment == nil {
		return nil
	}
	ctx, cancel := b.context()
	defer cancel()

	user := chatUser(c.Sender())
	purchase, err := b.svc.Pay.HandleSuccessfulPayment(ctx, user, starPayment(msg.Payment))
	switch {
	case err == nil, errors.Is(err, service.ErrDuplicateCharge):
		return nil
	case purchase != nil:
		// Recorded; the failed follow-up steps are already logged.
		return nil
	default:
		b.log.Error("handle payment failed",
			zap.Int64("user_id", user.ID),
			zap.String("charge_id", msg.Payment.TelegramChargeID),
			zap.Error(err),
		)
		return c.Send("Оплату отримано, але сталася помилка. Ми вже розбираємося.")
	}
}

func (b *Bot) handleDownload(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	sender := c.Sender()
	ok, err := b.svc.Access.HasAccess(ctx, sender.ID)
	if err != nil {
		b.log.Error("check access failed", zap.Int64("user_id", sender.ID), zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Сталася помилка. Спробуйте пізніше.", ShowAlert: true})
	}
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "Немає доступу. Оформіть покупку ✨", ShowAlert: true})
	}

	if err := c.Edit(downloadMarkup(true, b.svc.Settings.Current().DownloadURL())); err != nil {
		b.log.Warn("refresh download link failed", zap.Error(err))
	}
	return c.Respond(&tele.CallbackResponse{Text: "Посилання оновлено"})
}

// ── membership ────────────────────────────────────────────────────────

func (b *Bot) handleMyChatMember(c tele.Context) error {
	upd := c.ChatMember()
	if upd == nil || upd.NewChatMember == nil || !leftBot(upd.NewChatMember.Role) {
		return nil
	}
	ctx, cancel := b.context()
	defer cancel()

	var userID int64
	if upd.Sender != nil {
		userID = upd.Sender.ID
	}
	if err := b.svc.Users.MarkBlocked(ctx, userID); err != nil {
		b.log.Warn("mark blocked failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return nil
}

// ── admin ─────────────────────────────────────────────────────────────

func (b *Bot) isAdmin(ctx context.Context, userID int64) bool {
	ok, err := b.svc.Admins.IsAdmin(ctx, userID)
	if err != nil {
		b.log.Warn("admin lookup failed", zap.Int64("user_id", userID), zap.Error(err))
	}
	return ok
}

func (b *Bot) handleAdminMenu(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Немає доступу", ShowAlert: true})
	}
	_ = c.Respond()
	return b.sendAdminMenu(ctx, c)
}

func (b *Bot) handleToggleSales(c tele.Context) error {
	ctx, cancel := b.context()
	defer cancel()

	if !b.isAdmin(ctx, c.Sender().ID) {
		return c.Respond(&tele.CallbackResponse{Text: "Немає доступу", ShowAlert: true})
	}
	offer, err := b.svc.Settings.ToggleSales(ctx)
	if err != nil {
		b.log.Error("toggle sales failed", zap.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: "Не вдалося змінити налаштування", ShowAlert: true})
	}
	b.log.Info("sales toggled", zap.Int64("admin_id", c.Sender().ID), zap.Bool("sales_enabled", offer.SalesEnabled))
	_ = c.Respond()
	return b.sendAdminMenu(ctx, c)
}

func (b *Bot) sendAdminMenu(ctx context.Context, c tele.Context) error {
	stats, err := b.svc.Users.Stats(ctx)
	if err != nil {
		b.log.Warn("load user stats failed", zap.Error(err))
	}
	counters, err := b.svc.Counters.Snapshot(ctx)
	if err != nil {
		b.log.Warn("load counters failed", zap.Error(err))
	}
	total, err := b.svc.Ledger.TotalBalance(ctx)
	if err != nil {
		b.log.Warn("load total balance failed", zap.Error(err))
	}
	offer := b.svc.Settings.Current()
	return c.Send(adminSummary(offer, stats, counters, total), adminMarkup(offer))
}

func adminSummary(offer model.Offer, stats model.UserStats, counters model.CountersSnapshot, total int64) string {
	sales := "увімкнено"
	if !offer.SalesEnabled {
		sales = "вимкнено"
	}
	stars := offer.PriceStars()
	return fmt.Sprintf("Керування 🤖\n\n"+
		"Ціна: %d UAH (~%d) = %d ⭐️ ≈ %s TON\n"+
		"Продаж: %s\n\n"+
		"Користувачі: %d (старт %d, купити %d, покупки %d, заблокували %d)\n"+
		"Покупки: %d успішних, %d помилок\n"+
		"Баланс зірок: %d ⭐️",
		offer.PriceUAH, offer.OldPriceUAH, stars, offer.TONEstimate(stars).String(),
		sales,
		stats.Total, counters.UniqueUsersStarted, counters.BuyClicks, stats.Purchased, counters.BlockedBot,
		counters.PurchasesSuccess, counters.PurchasesFail,
		total,
	)
}

// ── helpers ───────────────────────────────────────────────────────────

func chatUser(u *tele.User) model.ChatUser {
	if u == nil {
		return model.ChatUser{}
	}
	return model.ChatUser{ID: u.ID, Username: u.Username}
}

func displayName(u *tele.User) string {
	if u == nil {
		return guestName
	}
	if u.Username != "" {
		return u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return guestName
	}
	return name
}

func starPayment(p *tele.Payment) model.StarPayment {
	return model.StarPayment{
		ChargeID:         p.TelegramChargeID,
		ProviderChargeID: p.ProviderChargeID,
		Payload:          p.Payload,
		Currency:         p.Currency,
		Total:            int64(p.Total),
	}
}

// leftBot reports whether the bot's new membership means the user blocked
// or stopped it.
func leftBot(role tele.MemberStatus) bool {
	switch role {
	case tele.Kicked, tele.Left, tele.Restricted:
		return true
	}
	return false
}
