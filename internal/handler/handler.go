package handler

import (
	"context"
	"errors"
	"strconv"

	"starshop/internal/model"
	"starshop/internal/repository"
	"starshop/internal/service"
	"starshop/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// Handler serves the admin console API.
type Handler struct {
	ledger    *service.LedgerService
	refunds   *service.RefundService
	access    *service.AccessService
	settings  *service.SettingsService
	users     *service.UserService
	counters  *service.CounterService
	admins    *service.AdminService
	content   *service.ContentService
	broadcast *service.BroadcastService
	system    *service.SystemService
	purchases *repository.PurchaseRepository
	orders    *repository.OrderRepository
	outbox    *repository.OutboxRepository
	log       *zap.Logger
}

// Deps lists the collaborators of Handler.
type Deps struct {
	Repos     *repository.Repositories
	Ledger    *service.LedgerService
	Refunds   *service.RefundService
	Access    *service.AccessService
	Settings  *service.SettingsService
	Users     *service.UserService
	Counters  *service.CounterService
	Admins    *service.AdminService
	Content   *service.ContentService
	Broadcast *service.BroadcastService
	System    *service.SystemService
	Logger    *zap.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		ledger:    d.Ledger,
		refunds:   d.Refunds,
		access:    d.Access,
		settings:  d.Settings,
		users:     d.Users,
		counters:  d.Counters,
		admins:    d.Admins,
		content:   d.Content,
		broadcast: d.Broadcast,
		system:    d.System,
		purchases: d.Repos.Purchases,
		orders:    d.Repos.Orders,
		outbox:    d.Repos.Outbox,
		log:       d.Logger.With(zap.String("component", "admin_api")),
	}
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.ParamError(c, "invalid user_id")
		return 0, false
	}
	return userID, true
}

func parseLimit(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// ============================================================
// Balances and records
// ============================================================

// GetBalance GET /api/v1/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	balance, err := h.ledger.BalanceOf(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"user_id": userID,
		"balance": balance,
	})
}

// GetTotalBalance GET /api/v1/balance/total
func (h *Handler) GetTotalBalance(c *gin.Context) {
	total, err := h.ledger.TotalBalance(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total": total})
}

// ListPurchases GET /api/v1/purchases?limit=50
func (h *Handler) ListPurchases(c *gin.Context) {
	list, err := h.purchases.List(c.Request.Context(), parseLimit(c, "limit", defaultListLimit))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"list": list, "count": len(list)})
}

// ListOrders GET /api/v1/orders?limit=50
func (h *Handler) ListOrders(c *gin.Context) {
	list, err := h.orders.List(c.Request.Context(), parseLimit(c, "limit", defaultListLimit))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"list": list, "count": len(list)})
}

// ListLedger GET /api/v1/ledger?limit=50
func (h *Handler) ListLedger(c *gin.Context) {
	list, err := h.ledger.Recent(c.Request.Context(), parseLimit(c, "limit", defaultListLimit))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"list": list, "count": len(list)})
}

// LedgerEntryRequest is the body of a manual adjustment.
type LedgerEntryRequest struct {
	UserID   int64  `json:"user_id" binding:"required,gt=0"`
	Amount   int64  `json:"amount"`
	ChargeID string `json:"charge_id"`
	Comment  string `json:"comment"`
}

// AddLedgerEntry POST /api/v1/ledger/:kind
//
// Withdrawals and awards take a positive amount and get their sign from the
// kind. Corrections keep the sign they are given. Refund entries are only
// written by the refund flow.
func (h *Handler) AddLedgerEntry(c *gin.Context) {
	kind := model.LedgerKind(c.Param("kind"))
	if kind == model.LedgerKindRefund || !kind.Valid() {
		response.BusinessError(c, response.CodeInvalidLedgerKind, "unknown ledger kind: "+string(kind))
		return
	}

	var req LedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}
	switch {
	case kind == model.LedgerKindCorrection && req.Amount == 0:
		response.ParamError(c, "amount must not be zero")
		return
	case kind != model.LedgerKindCorrection && req.Amount <= 0:
		response.ParamError(c, "amount must be positive")
		return
	}

	rec, err := h.ledger.AddEntry(c.Request.Context(), req.UserID, req.Amount, kind, service.EntryOptions{
		ChargeID: req.ChargeID,
		Comment:  req.Comment,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidLedgerKind) {
			response.BusinessError(c, response.CodeInvalidLedgerKind, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	h.log.Info("manual ledger entry",
		zap.Int64("admin_id", c.GetInt64(adminIDKey)),
		zap.Int64("user_id", rec.UserID),
		zap.Int64("amount", rec.Amount),
		zap.String("kind", string(rec.Kind)))

	response.Success(c, rec)
}

// RefundRequest is the body of a refund call.
type RefundRequest struct {
	ChargeID string `json:"charge_id" binding:"required"`
	Reason   string `json:"reason"`
}

// Refund POST /api/v1/refund
func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.refunds.Refund(c.Request.Context(), &service.RefundRequest{
		ChargeID:    req.ChargeID,
		RequestedBy: c.GetInt64(adminIDKey),
		Reason:      req.Reason,
	})
	if err != nil {
		failed := gin.H{"charge_id": req.ChargeID, "refunded": false}
		switch {
		case errors.Is(err, service.ErrChargeNotFound):
			response.BusinessErrorWithData(c, response.CodeChargeNotFound, err.Error(), failed)
		case errors.Is(err, service.ErrAlreadyRefunded):
			response.BusinessErrorWithData(c, response.CodeAlreadyRefunded, err.Error(), failed)
		case errors.Is(err, service.ErrRefundRejected):
			response.BusinessErrorWithData(c, response.CodeRefundRejected, err.Error(), failed)
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, result)
}

// GetAccess GET /api/v1/access?user_id=xxx
func (h *Handler) GetAccess(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	rec, err := h.access.Get(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"user_id":    userID,
		"has_access": rec != nil,
		"access":     rec,
	})
}

// ListFailedOutbox GET /api/v1/outbox/failed?limit=50
func (h *Handler) ListFailedOutbox(c *gin.Context) {
	list, err := h.outbox.GetFailedMessages(c.Request.Context(), parseLimit(c, "limit", defaultListLimit))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"list": list, "count": len(list)})
}

// ============================================================
// Settings
// ============================================================

func offerView(offer model.Offer) gin.H {
	stars := offer.PriceStars()
	return gin.H{
		"offer":        offer,
		"price_stars":  stars,
		"ton_estimate": offer.TONEstimate(stars).String(),
		"download_url": offer.DownloadURL(),
	}
}

// GetSettings GET /api/v1/settings
func (h *Handler) GetSettings(c *gin.Context) {
	response.Success(c, offerView(h.settings.Current()))
}

// SetPriceRequest accepts either Input in the "299,699" form or explicit fields.
type SetPriceRequest struct {
	Input    string `json:"input"`
	Price    int64  `json:"price"`
	OldPrice *int64 `json:"old_price"`
}

// SetPrice PUT /api/v1/settings/price
func (h *Handler) SetPrice(c *gin.Context) {
	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	price, old := req.Price, req.OldPrice
	if req.Input != "" {
		var err error
		price, old, err = service.ParsePriceInput(req.Input)
		if err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	offer, err := h.settings.SetPrice(c.Request.Context(), price, old)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPrice) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, offerView(offer))
}

// SetGuideURL PUT /api/v1/settings/url
func (h *Handler) SetGuideURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	offer, err := h.settings.SetGuideURL(c.Request.Context(), req.URL)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, offerView(offer))
}

// SetSales PUT /api/v1/settings/sales
func (h *Handler) SetSales(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	offer, err := h.settings.SetSalesEnabled(c.Request.Context(), *req.Enabled)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, offerView(offer))
}

// ToggleSales POST /api/v1/settings/sales/toggle
func (h *Handler) ToggleSales(c *gin.Context) {
	offer, err := h.settings.ToggleSales(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, offerView(offer))
}

// ============================================================
// Engagement
// ============================================================

// GetStats GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.users.Stats(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	counters, err := h.counters.Snapshot(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	alerts, err := h.broadcast.Alerts(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	total, err := h.ledger.TotalBalance(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"users":         users,
		"counters":      counters,
		"alerts":        alerts,
		"total_balance": total,
	})
}

// ListAdmins GET /api/v1/admins
func (h *Handler) ListAdmins(c *gin.Context) {
	ids, err := h.admins.AdminIDs(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"admin_ids": ids})
}

// AddAdmin POST /api/v1/admins
func (h *Handler) AddAdmin(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	ids, err := h.admins.AddAdmin(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidUserID) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	h.log.Info("admin added", zap.Int64("admin_id", c.GetInt64(adminIDKey)), zap.Int64("user_id", req.UserID))
	response.Success(c, gin.H{"admin_ids": ids})
}

// Broadcast POST /api/v1/broadcast
func (h *Handler) Broadcast(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.broadcast.Broadcast(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		response.ParamError(c, err.Error())
	case err != nil && result != nil:
		response.BusinessErrorWithData(c, response.CodeBroadcastCancelled, err.Error(), result)
	case err != nil:
		response.ServerError(c, err.Error())
	default:
		response.Success(c, result)
	}
}

// GetSystemLog GET /api/v1/logs/system?lines=40
func (h *Handler) GetSystemLog(c *gin.Context) {
	n := parseLimit(c, "lines", service.DefaultLogLines)
	lines, err := h.system.TailLog(c.Request.Context(), n)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"lines": lines})
}

// GetContent GET /api/v1/content
func (h *Handler) GetContent(c *gin.Context) {
	ctx := c.Request.Context()
	pageOne, err := h.content.PageOne(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	faq, err := h.content.FAQ(ctx)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"page_one": pageOne, "faq": faq})
}

type contentRequest struct {
	Text string `json:"text" binding:"required"`
}

// UpdatePageOne PUT /api/v1/content/page-one
func (h *Handler) UpdatePageOne(c *gin.Context) {
	h.updateContent(c, h.content.UpdatePageOne)
}

// UpdateFAQ PUT /api/v1/content/faq
func (h *Handler) UpdateFAQ(c *gin.Context) {
	h.updateContent(c, h.content.UpdateFAQ)
}

func (h *Handler) updateContent(c *gin.Context, update func(context.Context, string) error) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := update(c.Request.Context(), req.Text); err != nil {
		if errors.Is(err, service.ErrEmptyContent) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, gin.H{"text": req.Text})
}
