// Package api exposes the reservation core over HTTP.
package api

import (
	"net/http"                       // HTTP status codes
	"ticketflow/internal/inventory"  // Stock ledger
	"ticketflow/internal/middleware" // Auth and tracing middleware
	"ticketflow/internal/order"      // Reservation and settlement engine
	"ticketflow/internal/wallet"     // Wallet ledger

	"github.com/gin-contrib/cors"                             // CORS middleware
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the services behind the routes
type Deps struct {
	DB             *gorm.DB          // Used for the admin role check and health
	Orders         *order.Engine     // Reservation and settlement
	Wallets        *wallet.Ledger    // Balances and history
	Stock          *inventory.Ledger // Events and ticket types
	JWTSecret      string            // HMAC secret of access tokens
	WebhookSecret  string            // Payment gateway signing secret, empty disables the webhook
	AllowedOrigins []string          // CORS origins, empty allows all
	TrustedProxies []string          // Proxies allowed to set client IP headers
}

// NewRouter wires all routes
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Tracing())
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}

	corsCfg := cors.DefaultConfig()
	if len(d.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = d.AllowedOrigins
	}
	corsCfg.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", healthHandler(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ticket-types/:id", GetTicketTypeHandler(d.Stock)) // Public availability
	if d.WebhookSecret != "" {
		r.POST("/payments/deposits/notify", DepositWebhookHandler(d.Wallets, d.WebhookSecret)) // Gateway callback
	}

	auth := middleware.JWTAuthMiddleware(d.JWTSecret)

	orders := r.Group("/orders", auth)
	orders.POST("", ReserveHandler(d.Orders))
	orders.GET("", ListOrdersHandler(d.Orders))
	orders.GET("/:id", GetOrderHandler(d.Orders))
	orders.GET("/:id/status", OrderStatusHandler(d.Orders))
	orders.POST("/:id/pay", PayHandler(d.Orders))

	wallets := r.Group("/wallet", auth)
	wallets.GET("", GetWalletHandler(d.Wallets))
	wallets.GET("/transactions", GetTransactionHistoryHandler(d.Wallets))
	wallets.POST("/deposit", DepositHandler(d.Wallets))

	admin := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(d.DB))
	admin.POST("/events", CreateEventHandler(d.Stock))
	admin.POST("/events/:id/cancel", CancelEventHandler(d.Stock))
	admin.POST("/events/:id/ticket-types", AddTicketTypeHandler(d.Stock))
	admin.PATCH("/ticket-types/:id", UpdateTicketTypeHandler(d.Stock))
	admin.POST("/tickets/check-in", CheckInHandler(d.Orders))
	admin.POST("/wallet/refund", RefundHandler(d.Wallets))
	admin.POST("/wallet/deposits/:reference/confirm", ConfirmDepositHandler(d.Wallets))

	return r, nil
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
