package main

import (
	"context"                           // Startup and shutdown deadlines
	"errors"                            // Server close detection
	"net/http"                          // HTTP server
	"os"                                // Signals
	"os/signal"                         // Graceful shutdown
	"syscall"                           // SIGTERM
	"ticketflow/internal/api"           // HTTP handlers
	"ticketflow/internal/config"        // Configuration
	"ticketflow/internal/db"            // Database connection
	"ticketflow/internal/inventory"     // Stock ledger
	"ticketflow/internal/notify"        // Broadcasting and order paid events
	"ticketflow/internal/observability" // Tracing
	"ticketflow/internal/order"         // Reservation and settlement engine
	"ticketflow/internal/reclaim"       // Expired order sweeper
	"ticketflow/internal/wallet"        // Wallet ledger
	"time"                              // Timeouts

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg)
	if err != nil {
		logrus.Fatalf("failed to set up tracing: %v", err)
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	var cache *order.Cache // Nil disables the order cache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr, // Redis server address
			Password: cfg.RedisPass, // Redis password
			DB:       cfg.RedisDB,   // Redis database number
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logrus.WithField("error", err.Error()).Warn("Redis unreachable, order cache disabled")
		} else {
			cache = order.NewCache(redisClient, cfg.OrderCacheTTL)
			defer redisClient.Close()
		}
	}

	var broadcaster notify.Broadcaster = notify.LogBroadcaster{}
	if cfg.PubNubPublishKey != "" {
		broadcaster = notify.Multi{broadcaster, notify.NewPubNubBroadcaster(notify.PubNubConfig{
			PublishKey:   cfg.PubNubPublishKey,
			SubscribeKey: cfg.PubNubSubscribeKey,
			SecretKey:    cfg.PubNubSecretKey,
			UserID:       cfg.PubNubUserID,
		})}
	}

	bus := notify.NewBus(cfg.EventBusBuffer)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub := notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderPaidTopic)
		defer kafkaPub.Close()
		bus.Subscribe(kafkaPub.Handle)
	}
	bus.Start()

	wallets := wallet.NewLedger(gdb, cfg.WalletCurrency)
	orders := order.NewEngine(gdb, wallets, broadcaster, bus, order.WithCache(cache))
	stock := inventory.NewLedger(gdb, broadcaster)

	sweeper := reclaim.NewSweeper(gdb, broadcaster, cache, reclaim.Config{
		HoldWindow: cfg.OrderHoldWindow,
		Interval:   cfg.SweepInterval,
		BatchSize:  cfg.SweepBatchSize,
	})
	if err := sweeper.Start(); err != nil {
		logrus.Fatalf("failed to start reclaim sweeper: %v", err)
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := api.NewRouter(api.Deps{
		DB:             gdb,
		Orders:         orders,
		Wallets:        wallets,
		Stock:          stock,
		JWTSecret:      cfg.JWTSecret,
		WebhookSecret:  cfg.PaymentWebhookSecret,
		AllowedOrigins: cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithField("error", err.Error()).Error("HTTP shutdown incomplete")
	}
	if err := sweeper.Stop(); err != nil {
		logrus.WithField("error", err.Error()).Error("Sweeper shutdown incomplete")
	}
	bus.Close() // Drain order paid events before the publisher closes
	if err := shutdownTracing(shutdownCtx); err != nil {
		logrus.WithField("error", err.Error()).Error("Tracing shutdown incomplete")
	}
}

func setupLogger(cfg *config.Config) {
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
