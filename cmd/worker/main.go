package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/stakegraph/internal/backend"
	"github.com/OFFIS-RIT/stakegraph/internal/queue"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/leaselock"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	b, err := backend.Open(ctx)
	if err != nil {
		logger.Fatal("[Worker] Failed to open graph source", "err", err)
	}
	defer b.Close(context.Background())
	if b.Postgres == nil {
		logger.Warn("[Worker] DATABASE_URL not set, reports are not shared with the server")
	}

	params, err := backend.SolverParamsFromEnv()
	if err != nil {
		logger.Fatal("[Worker] Invalid solver configuration", "err", err)
	}

	objects, err := backend.ObjectStoreFromEnv(ctx)
	if err != nil {
		logger.Fatal("[Worker] Failed to create S3 client", "err", err)
	}
	if objects == nil {
		logger.Fatal("[Worker] AWS_BUCKET is required to store reports")
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("[Worker] Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.ReportQueue}); err != nil {
		logger.Fatal("[Worker] Failed to set up queues", "err", err)
	}

	processor := &queue.ReportProcessor{
		Source:       b.Source,
		Reports:      b.Reports,
		Objects:      objects,
		Events:       ch,
		SolverParams: params,
		NetworkDepth: backend.NetworkDepthFromEnv(),
		LockOptions: leaselock.Options{
			TTL:  util.GetEnvDuration("REPORT_LOCK_TTL", 2*time.Minute),
			Wait: true,
		},
	}
	if b.Postgres != nil {
		processor.Locks = leaselock.New(b.Postgres.Pool())
		processor.Timings = b.Postgres.Pool()
	}

	staleAge := util.GetEnvDuration("STALE_REPORT_AGE", 15*time.Minute)
	if err := queue.RecoverStaleReports(ctx, ch, b.Reports, staleAge); err != nil {
		logger.Error("[Worker] Failed to recover stale reports", "err", err)
	}
	go func() {
		ticker := time.NewTicker(util.GetEnvDuration("STALE_REPORT_INTERVAL", 5*time.Minute))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := queue.RecoverStaleReports(ctx, ch, b.Reports, staleAge); err != nil {
					logger.Error("[Worker] Failed to recover stale reports", "err", err)
				}
			}
		}
	}()

	// One report at a time per worker
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("[Worker] Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	if err := consumerCh.Qos(1, 0, false); err != nil {
		logger.Fatal("[Worker] Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.ReportQueue,
		"report_queue_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("[Worker] Failed to start consuming", "queue", queue.ReportQueue, "err", err)
	}

	logger.Info("[Worker] Listening for messages", "queue", queue.ReportQueue)

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Worker] Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Worker] Message channel closed")
				return
			}
			start := time.Now()
			if err := processor.ProcessReportMessage(ctx, msg.Body); err != nil {
				logger.Error("[Worker] Error processing message", "err", err)
				queue.HandleProcessingError(consumerCh, msg, queue.ReportQueue, err)
				continue
			}
			if err := msg.Ack(false); err != nil {
				logger.Error("[Worker] Failed to ack message", "err", err)
			}
			logger.Info("[Worker] Message processed", "duration", time.Since(start))
		}
	}
}
