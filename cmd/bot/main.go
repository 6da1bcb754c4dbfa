package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/admin"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/database"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/repository"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/service"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/session"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/telegram"
	"github.com/lianamurzabaeva86-hue/forwarded/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	relayRepo := repository.NewRelayRepository(db)

	sender := telegram.NewSender(botAPI)
	sessions := session.NewMemoryStore()

	accountService := service.NewAccountService(cfg, logr, userRepo, sender)
	relayService := service.NewRelayService(cfg, logr, relayRepo, sessions, sender, sender)

	bot := telegram.NewBot(cfg, botAPI, logr, accountService, relayService)

	adminServer := admin.NewServer(cfg, logr, accountService, relayRepo, sender, bot.WebhookHandler())
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
