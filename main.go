package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"go_community_bot/access"
	"go_community_bot/config"
	"go_community_bot/cooldown"
	"go_community_bot/database"
	"go_community_bot/filter"
	"go_community_bot/form"
	"go_community_bot/handlers"
	"go_community_bot/lifecycle"
	"go_community_bot/tglog"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN не установлен")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("подключение к БД", zap.Error(err))
	}
	defer db.Close()

	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		logger.Fatal("создание бота", zap.Error(err))
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		logger.Fatal("getMe", zap.Error(err))
	}
	logger.Info("бот запущен", zap.String("username", me.Username))

	tglog.Init(b, cfg.LogChannelID, logger)

	roles := access.New(cfg.AdminIDs, cfg.ModeratorIDs)
	gate := cooldown.New(db, roles, cfg.CooldownWindow, logger)
	collector := form.NewCollector(filter.New(cfg.BannedDomains), cfg.MaxMediaCount)
	notifier := handlers.NewNotifier(b, cfg)
	service := lifecycle.NewService(db, notifier, gate, roles, logger)

	h := handlers.New(b, cfg, db, roles, collector, service, gate, logger)

	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.OnMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.OnCallback)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil && len(update.Message.Photo) > 0
	}, h.OnMessage)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CleanupInactiveUsers(ctx)
			}
		}
	}()

	b.Start(ctx)
}
