package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"uniform-tracker/internal/adapters/cli"
	"uniform-tracker/internal/adapters/repl"
	"uniform-tracker/internal/ai"
	"uniform-tracker/internal/app"
	"uniform-tracker/internal/config"
	"uniform-tracker/internal/core"
	"uniform-tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx := context.Background()
	st, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("store")
	}

	var agent ai.AgentService
	if cfg.OpenAIAPIKey != "" {
		agent = ai.NewAgent(cfg.OpenAIAPIKey)
	}

	svc := app.NewAppService(
		core.NewSchoolService(st),
		core.NewPolicyService(st, logger),
		core.NewFulfillmentService(st, logger),
		core.NewDeficitService(st),
		core.NewStockService(st, logger),
		agent,
	)

	if len(os.Args) < 2 {
		repl.Run(ctx, svc, bufio.NewReader(os.Stdin), os.Stdout)
		closeStore()
		return
	}

	err = cli.Run(ctx, svc, os.Args[1:], os.Stdout)
	closeStore()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
