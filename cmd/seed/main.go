package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/backend"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger/console"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	var b *backend.Backend
	err := util.WaitFor(ctx, 60, 2*time.Second, func(ctx context.Context) error {
		opened, err := backend.Open(ctx)
		if err != nil {
			logger.Info("[Seed] Waiting for graph source", "err", err)
			return err
		}
		if err := opened.Ping(ctx); err != nil {
			logger.Info("[Seed] Waiting for graph source", "err", err)
			_ = opened.Close(ctx)
			return err
		}
		b = opened
		return nil
	})
	if err != nil {
		logger.Fatal("[Seed] Graph source not reachable", "err", err)
	}
	defer b.Close(context.Background())

	data := store.Sample()
	start := time.Now()
	if err := b.Writer.Seed(ctx, data); err != nil {
		logger.Fatal("[Seed] Failed to seed", "source", b.Kind, "err", err)
	}

	logger.Info(
		"[Seed] Sample data written",
		"source", b.Kind,
		"companies", len(data.Companies),
		"persons", len(data.Persons),
		"ownerships", len(data.Ownerships),
		"roles", len(data.Roles),
		"transfers", len(data.Transfers),
		"duration", time.Since(start),
	)
}
