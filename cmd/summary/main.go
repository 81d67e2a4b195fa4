// Command summary sends the daily Telegram summary without running a
// collection. Useful for re-sending after a notification failure or for
// checking the report against the current warehouse state.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/notify"
	"github.com/dvloznov/finance-dashboard/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "config/pipeline.yaml", "path to the pipeline config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrapLog := logger.New("info")
		bootstrapLog.Fatal().Err(err).Str("path", *configPath).Msg("Loading config failed")
	}

	log := logger.New(cfg.Global.LogLevel)

	token := cfg.Telegram.BotToken()
	chatID := cfg.Telegram.ChatID()
	if token == "" || chatID == "" {
		log.Fatal().Msg("Telegram bot token or chat ID is missing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	gw, err := warehouse.New(ctx, cfg.Database.ProjectID, cfg.Database.DatasetID, cfg.Database.Location, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating warehouse gateway failed")
	}
	defer gw.Close()

	summary, err := gw.DailySummary(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Building daily summary failed")
	}
	if summary == nil {
		log.Info().Msg("No summary data yet")
		return
	}

	tg := notify.NewTelegram(token, chatID, cfg.TableNames)
	if err := tg.SendSummary(ctx, summary, cfg.Telegram.DashboardURL, cfg.Global.PreferredCurrency); err != nil {
		log.Fatal().Err(err).Msg("Sending Telegram summary failed")
	}
	log.Info().Str("date", summary.Date.String()).Msg("Daily summary sent")
}
