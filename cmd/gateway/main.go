package main

import (
	"context"
	"os/signal"
	"syscall"

	"tradegateway/config"
	"tradegateway/internal/gateway"
	"tradegateway/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("gateway starting",
		zap.String("environment", cfg.Log.Environment),
		zap.String("addr", cfg.Server.Addr()),
	)

	if err := gateway.Run(ctx, cfg, log); err != nil {
		log.Fatal("gateway failed", zap.Error(err))
	}

	log.Info("gateway stopped")
}
