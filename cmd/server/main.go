// Command server runs the helpdesk KPI dashboard over gRPC.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/godilite/helpdesk-kpi/internal/app"
	"github.com/godilite/helpdesk-kpi/internal/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	cfg := config.LoadFromEnv()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("env", cfg.AppEnv),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Bool("operational_configured", cfg.Operational.Configured()),
		zap.Bool("survey_configured", cfg.Survey.Configured()),
		zap.Duration("snapshot_ttl", cfg.SnapshotTTL),
		zap.Duration("view_cache_ttl", cfg.ViewCacheTTL),
		zap.String("score_strategy", cfg.ScoreStrategy),
		zap.String("timezone", cfg.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("Application exited with error", zap.Error(err))
		stop()
		os.Exit(1)
	}
}
