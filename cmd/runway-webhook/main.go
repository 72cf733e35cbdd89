// Package main provides the webhook receiver that correlates CI provider
// events back to test runs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/caselab/runway/pkg/cmd"
	"github.com/caselab/runway/pkg/log"
	"github.com/caselab/runway/pkg/webhook"
)

const defaultPort = 9092

func main() {
	command := &cli.Command{
		Name:                  "runway-webhook",
		Usage:                 "Receive CI provider webhook events and apply run results",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the webhook server on",
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

			logger := log.WithModule("runway-webhook")

			logger.InfoContext(ctx, "Initializing Runway Webhook receiver")

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

			eventBus := cmd.NewEventBus(command.String("event-bus"), "runway-webhook", command.String("kafka-brokers"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			correlator := webhook.NewCorrelator(persistence, correlations, eventBus, logger)
			server := webhook.NewServer(command.Int("port"), correlator, logger)

			serverCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			if err := server.Start(serverCtx); err != nil {
				return err
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigChan:
				logger.InfoContext(ctx, "Received signal", "signal", sig)
			case <-server.Done():
			}

			return server.Stop(context.Background())
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
