package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/akiftaxi/gatekeeper/internal/auth"
	"github.com/akiftaxi/gatekeeper/internal/bot"
	"github.com/akiftaxi/gatekeeper/internal/config"
	httpserver "github.com/akiftaxi/gatekeeper/internal/http"
	"github.com/akiftaxi/gatekeeper/internal/invite"
	"github.com/akiftaxi/gatekeeper/internal/lifecycle"
	"github.com/akiftaxi/gatekeeper/internal/platform"
	"github.com/akiftaxi/gatekeeper/internal/repository"
	"github.com/akiftaxi/gatekeeper/internal/schedule"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	membersRepo := repository.NewMembersRepository(db)
	invitesRepo := repository.NewInvitesRepository(db)
	paymentsRepo := repository.NewPaymentsRepository(db)
	messagesRepo := repository.NewMessagesRepository(db)

	// Connect to Telegram
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to Telegram", "bot", api.Self.UserName)

	group := platform.NewTelegram(api, cfg.GroupChatID, logger)
	if err := group.CheckBotPermissions(context.Background()); err != nil {
		// Keep running: the operator gets alerted again on the first
		// failed eviction or invite.
		logger.Warn("bot permission check failed", "error", err)
	}

	// Initialize services
	ledger := invite.NewLedger(invitesRepo, group, logger)
	sched := schedule.New()
	notifier := bot.NewNotifier(group, cfg.OperatorID, logger)
	coordinator := lifecycle.New(lifecycle.Config{
		TrialTTL:   cfg.TrialTTL,
		RenewalTTL: cfg.RenewalTTL,
	}, membersRepo, ledger, sched, group, notifier, logger)

	tokenService := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL)

	frontend := bot.New(api, bot.Config{
		GroupChatID:    cfg.GroupChatID,
		OperatorID:     cfg.OperatorID,
		PaymentDetails: cfg.PaymentDetails,
	}, membersRepo, paymentsRepo, messagesRepo, coordinator, group, logger)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		TokenService:    tokenService,
		MessagesStore:   messagesRepo,
		StatsStore:      membersRepo,
		RateLimit:       cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the bot update loop
	go frontend.Run(ctx)

	// Expire overdue invites that outlived their link in storage
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := invitesRepo.ExpireOverdue(ctx, time.Now())
				if err != nil {
					logger.Error("invite expiry sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("expired overdue invites", "count", n)
				}
			}
		}
	}()

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	coordinator.Shutdown()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("stopped")
}
