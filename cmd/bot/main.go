// The pakreq Telegram bot. Long-polls the Telegram API and feeds every
// message through the command processor.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	migrations "github.com/aosc-dev/pakreq/db"
	"github.com/aosc-dev/pakreq/internal/bot"
	"github.com/aosc-dev/pakreq/internal/config"
	"github.com/aosc-dev/pakreq/internal/db"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/internal/repository/sqlite"
	"github.com/aosc-dev/pakreq/internal/service"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if cfg.TelegramToken == "" {
		logger.Error("telegram_token is required for the bot")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to open db", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn, migrations.Migrations); err != nil {
		logger.Error("failed to migrate db", "err", err)
		os.Exit(1)
	}

	repo := sqlite.New(conn, logger)
	svc := service.New(repo, service.NewPasswordHasher(cfg.PasswordPepper), logger)
	proc := bot.NewProcessor(svc, models.ProviderTelegram, cfg.BaseURL, logger)

	tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Error("failed to connect to telegram", "err", err)
		os.Exit(1)
	}
	logger.Info("bot authorized", "username", tg.Self.UserName)

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 60
	updates := tg.GetUpdatesChan(updateCfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.Info("shutting down bot")
			tg.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
				continue
			}

			msg := bot.Message{
				ExternalID:  strconv.FormatInt(update.Message.From.ID, 10),
				DisplayName: update.Message.From.UserName,
				ChatID:      update.Message.Chat.ID,
				Text:        update.Message.Text,
			}

			reply := proc.Handle(ctx, msg)
			if reply == "" {
				continue
			}

			out := tgbotapi.NewMessage(update.Message.Chat.ID, reply)
			out.ParseMode = tgbotapi.ModeHTML
			out.ReplyToMessageID = update.Message.MessageID
			if _, err := tg.Send(out); err != nil {
				logger.Error("send reply", "chat", update.Message.Chat.ID, "err", err)
			}
		}
	}
}
