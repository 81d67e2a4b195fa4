// Command collect runs the full daily pipeline: every enabled source is
// fetched, normalized to the preferred currency and merged into BigQuery,
// then the daily summary is sent to Telegram.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/archive"
	"github.com/dvloznov/finance-dashboard/internal/collector"
	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/convert"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/notify"
	"github.com/dvloznov/finance-dashboard/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "config/pipeline.yaml", "path to the pipeline config file")
	flag.Parse()

	// .env is a local convenience; production sets env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrapLog := logger.New("info")
		bootstrapLog.Fatal().Err(err).Str("path", *configPath).Msg("Loading config failed")
	}

	log := logger.New(cfg.Global.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := warehouse.New(ctx, cfg.Database.ProjectID, cfg.Database.DatasetID, cfg.Database.Location, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Creating warehouse gateway failed")
	}
	defer gw.Close()

	// Bootstrap failures are logged, not fatal: per-kind writes re-check
	// readiness and the run may still succeed for some sources.
	if err := gw.EnsureAll(ctx); err != nil {
		log.Warn().Err(err).Msg("Warehouse bootstrap incomplete")
	}

	rates := convert.NewFrankfurter()
	norm := convert.NewNormalizer(rates, cfg.Global.PreferredCurrency, log)

	options := []collector.Option{
		collector.WithLogger(log),
		collector.WithAttempts(cfg.Retry.Attempts),
		collector.WithDelay(cfg.Retry.Delay()),
	}
	if cfg.Archive.Bucket != "" {
		archiver, err := archive.NewGCS(ctx, cfg.Archive.Bucket)
		if err != nil {
			log.Warn().Err(err).Msg("Archiving disabled: creating GCS archiver failed")
		} else {
			defer archiver.Close()
			options = append(options, collector.WithArchiver(archiver))
		}
	}

	col := collector.New(gw, norm, collector.DefaultRegistry(), options...)

	log.Info().Str("currency", cfg.Global.PreferredCurrency).Msg("Starting collection run")
	if err := col.Run(ctx, collector.Groups(cfg)); err != nil {
		log.Fatal().Err(err).Msg("Collection run interrupted")
	}
	log.Info().Msg("Collection run finished")

	sendSummary(ctx, cfg, gw, log)
}

// sendSummary is best effort: a notification failure never fails the run.
func sendSummary(ctx context.Context, cfg *config.Config, gw *warehouse.Gateway, log zerolog.Logger) {
	if !cfg.Telegram.SendSummary {
		return
	}
	token := cfg.Telegram.BotToken()
	chatID := cfg.Telegram.ChatID()
	if token == "" || chatID == "" {
		log.Warn().Msg("Telegram summary enabled but bot token or chat ID is missing")
		return
	}

	summary, err := gw.DailySummary(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Building daily summary failed")
		return
	}
	if summary == nil {
		log.Info().Msg("No summary data yet, skipping notification")
		return
	}

	tg := notify.NewTelegram(token, chatID, cfg.TableNames)
	if err := tg.SendSummary(ctx, summary, cfg.Telegram.DashboardURL, cfg.Global.PreferredCurrency); err != nil {
		log.Error().Err(err).Msg("Sending Telegram summary failed")
		return
	}
	log.Info().Str("date", summary.Date.String()).Msg("Daily summary sent")
}
