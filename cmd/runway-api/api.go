// Package main provides the Runway API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/caselab/runway/pkg/dispatch"
	"github.com/caselab/runway/pkg/eventbus"
	"github.com/caselab/runway/pkg/keystore"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/registry"
	"github.com/caselab/runway/pkg/resolver"
	"github.com/caselab/runway/pkg/services"
	"github.com/caselab/runway/pkg/web"
	"github.com/caselab/runway/pkg/webhook"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	registry     *registry.Registry
	eventBus     eventbus.EventBus
	idempotency  keystore.KeyStore
	correlations keystore.KeyStore
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	idempotency keystore.KeyStore,
	correlations keystore.KeyStore,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		registry:     registry,
		eventBus:     eventBus,
		idempotency:  idempotency,
		correlations: correlations,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	targetResolver := resolver.NewResolver(a.persistence, a.logger)

	// Run creation never blocks on the provider call: the dispatcher worker
	// picks the request up from the bus.
	dispatcher := dispatch.NewQueueDispatcher(a.eventBus, a.logger)

	runsService := services.NewRuns(
		a.persistence,
		targetResolver,
		a.idempotency,
		dispatcher,
		a.eventBus,
		a.logger,
	)

	correlator := webhook.NewCorrelator(a.persistence, a.correlations, a.eventBus, a.logger)

	handlers := web.NewAPIHandlers(runsService, correlator, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Runway API")
	})

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRuns)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/result", handlers.ReportResult)

	app.Post("/webhooks/gitlab", handlers.GitLabWebhook)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
