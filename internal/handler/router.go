package handler

import (
	"starshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig carries what the router needs besides the handler.
type RouterConfig struct {
	AdminToken string
	Admins     *service.AdminService
	Gatherer   prometheus.Gatherer
	Logger     *zap.Logger
}

// SetupRouter wires the admin API, health check and metrics endpoint.
func SetupRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggerMiddleware(cfg.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	api.Use(AdminAuthMiddleware(cfg.AdminToken, cfg.Admins))
	{
		balance := api.Group("/balance")
		{
			balance.GET("", h.GetBalance)
			balance.GET("/total", h.GetTotalBalance)
		}

		api.GET("/purchases", h.ListPurchases)
		api.GET("/orders", h.ListOrders)
		api.GET("/access", h.GetAccess)
		api.GET("/outbox/failed", h.ListFailedOutbox)

		ledger := api.Group("/ledger")
		{
			ledger.GET("", h.ListLedger)
			ledger.POST("/:kind", h.AddLedgerEntry)
		}

		api.POST("/refund", h.Refund)

		settings := api.Group("/settings")
		{
			settings.GET("", h.GetSettings)
			settings.PUT("/price", h.SetPrice)
			settings.PUT("/url", h.SetGuideURL)
			settings.PUT("/sales", h.SetSales)
			settings.POST("/sales/toggle", h.ToggleSales)
		}

		api.GET("/stats", h.GetStats)

		admins := api.Group("/admins")
		{
			admins.GET("", h.ListAdmins)
			admins.POST("", h.AddAdmin)
		}

		api.POST("/broadcast", h.Broadcast)
		api.GET("/logs/system", h.GetSystemLog)

		content := api.Group("/content")
		{
			content.GET("", h.GetContent)
			content.PUT("/page-one", h.UpdatePageOne)
			content.PUT("/faq", h.UpdateFAQ)
		}
	}

	return r
}
