// Package web provides HTTP handlers and REST API endpoints for test-run management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/registry"
	"github.com/caselab/runway/pkg/services"
	"github.com/caselab/runway/pkg/webhook"
)

type APIHandlers struct {
	runsService *services.Runs
	correlator  *webhook.Correlator
	validator   *validator.Validate
	registry    *registry.Registry
}

func NewAPIHandlers(
	runsService *services.Runs,
	correlator *webhook.Correlator,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		runsService: runsService,
		correlator:  correlator,
		validator:   validator,
		registry:    registry,
	}
}

// CreateRuns executes a set of test cases and returns the runs created or
// reused for them.
func (h *APIHandlers) CreateRuns(c fiber.Ctx) error {
	var req CreateRunsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	serviceReq := services.RunTestCasesRequest{
		TestSuiteID:    req.TestSuiteID,
		TestCaseIDs:    req.TestCaseIDs,
		Mode:           models.ExecutionMode(req.Mode),
		SkipUnresolved: req.SkipUnresolved,
	}

	if req.TargetOverride != nil {
		serviceReq.TargetOverride = req.TargetOverride.ToModel()
	}

	runs, err := h.runsService.RunTestCases(c.Context(), serviceReq)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"runs": runs,
	})
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	runs, err := h.runsService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs": runs,
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Test run ID is required")
	}

	run, err := h.runsService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsTestRunNotFound(err) {
			return notFound(c, "Test run not found")
		}

		return internalError(c, err)
	}

	return c.JSON(run)
}

// ReportResult applies an externally observed result to a run.
func (h *APIHandlers) ReportResult(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Test run ID is required")
	}

	var req ReportResultRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.runsService.ReportResult(c.Context(), id, *req.Passed)
	if err != nil {
		if persistence.IsTestRunNotFound(err) {
			return notFound(c, "Test run not found")
		}

		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

// GitLabWebhook accepts pipeline events on the API surface. Malformed
// payloads are acknowledged with 200 so the provider stops retrying them.
func (h *APIHandlers) GitLabWebhook(c fiber.Ctx) error {
	var payload map[string]any
	if err := c.Bind().JSON(&payload); err != nil {
		return c.JSON(fiber.Map{"status": "discarded"})
	}

	if err := h.correlator.ProcessPipelineEvent(c.Context(), payload); err != nil {
		if webhook.IsInvalidPayload(err) {
			return c.JSON(fiber.Map{"status": "discarded"})
		}

		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "processed"})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.runsService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Runway API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Runway API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
