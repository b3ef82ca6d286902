package main

import (
	"context"
	"net/http"

	webAdapter "uniform-tracker/internal/adapters/web"
	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/app"
	"uniform-tracker/internal/config"
	"uniform-tracker/internal/core"
	"uniform-tracker/internal/lock"
	"uniform-tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger("info").WithError(err).Fatal("config")
	}
	logger := config.NewLogger(cfg.LogLevel)

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("store")
	}
	defer closeStore()

	var locker lock.Locker
	if cfg.RedisAddress != "" {
		rl, rdb, err := lock.NewRedisLocker(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.LockTTL)
		if err != nil {
			logger.WithError(err).Fatal("redis")
		}
		defer rdb.Close()
		locker = rl
	} else {
		logger.Warn("REDIS_ADDRESS is not set; write paths run without a distributed lock")
	}

	var agent ai.AgentService
	if cfg.OpenAIAPIKey != "" {
		agent = ai.NewAgent(cfg.OpenAIAPIKey)
	} else {
		logger.Warn("OPENAI_API_KEY is not set; note intake is disabled")
	}

	svc := app.NewAppService(
		core.NewSchoolService(st),
		core.NewPolicyService(st, logger),
		core.NewFulfillmentService(st, logger),
		core.NewDeficitService(st),
		core.NewStockService(st, logger),
		agent,
	)

	handler := webAdapter.NewHandler(svc, logger, locker, cfg.AllowedOrigins)

	logger.WithField("port", cfg.ServerPort).Info("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		logger.WithError(err).Fatal("server")
	}
}
