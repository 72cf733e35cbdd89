package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/caselab/runway/pkg/cmd"
	"github.com/caselab/runway/pkg/log"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "runway-api",
		Usage:                 "Create and manage test runs",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "keystore-url",
				Usage:   "Key store URL for idempotency and correlation indexes",
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

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Runway API")

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

			idempotency, err := cmd.NewKeyStore(command.String("keystore-url"), "idempotency")
			if err != nil {
				return err
			}

			defer func() {
				if err := idempotency.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close idempotency key store", "error", err)
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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "runway-api", command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				registry,
				eventBus,
				idempotency,
				correlations,
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
