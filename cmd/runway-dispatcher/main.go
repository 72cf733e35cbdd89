package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/caselab/runway/pkg/cmd"
	"github.com/caselab/runway/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "runway-dispatcher",
		Usage:                 "Start workers to dispatch test runs to CI providers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "keystore-url",
				Usage:   "Key store URL for the pipeline correlation index",
				Value:   "memory://",
				Sources: cli.EnvVars("KEYSTORE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "dispatcher-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("runway-dispatcher").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Runway Dispatcher")

			registry := cmd.NewRegistry(logger)

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			correlations, err := cmd.NewKeyStore(command.String("keystore-url"), "correlation")
			if err != nil {
				return err
			}

			defer func() {
				if err := correlations.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close correlation key store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "runway-dispatcher", command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			worker := NewWorker(
				workerID,
				persistence,
				registry,
				correlations,
				eventBus,
				logger,
			)

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start dispatcher worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
