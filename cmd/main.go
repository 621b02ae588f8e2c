package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/data"
	"github.com/KotFed0t/investa/data/cache"
	"github.com/KotFed0t/investa/data/repository/postgres"
	"github.com/KotFed0t/investa/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/KotFed0t/investa/internal/externalApi/nasdaqApi"
	"github.com/KotFed0t/investa/internal/externalApi/quoteApi"
	"github.com/KotFed0t/investa/internal/pricecache"
	"github.com/KotFed0t/investa/internal/reportGenerator/xlsxGenerator"
	"github.com/KotFed0t/investa/internal/scheduler"
	"github.com/KotFed0t/investa/internal/service/portfolioService"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.NewPostgres(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	quoteApiClient := quoteApi.New(cfg)
	nasdaqApiClient := nasdaqApi.New(cfg)

	priceCache := pricecache.New(cfg, quoteApiClient)

	reportGenerator := xlsxGenerator.New()

	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(cfg, pgRepo, redisCache, priceCache, quoteApiClient, nasdaqApiClient, reportGenerator, cloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("warm quotes", portfolioSrv.WarmQuotes, cfg.Jobs.WarmQuotesInterval, true)
	sched.NewCrontabJob("sync tickers", portfolioSrv.SyncTickers, cfg.Jobs.TickerSyncCrontab, false)
	if cfg.GoogleDrive.Enabled {
		sched.NewIntervalJob("cleanup reports", portfolioSrv.CleanupReports, cfg.Jobs.DriveCleanupInterval, false)
	}
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
