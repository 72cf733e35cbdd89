// Package web provides HTTP request and response types for the test-run API.
package web

import "github.com/caselab/runway/pkg/models"

// ExecutionTargetRequest is the request body shape of a runtime target
// override.
type ExecutionTargetRequest struct {
	IntegrationID string            `json:"integration_id"`
	Name          string            `json:"name"`
	Type          string            `json:"type"   validate:"required,oneof=gitlab github manual"`
	Config        map[string]string `json:"config"`
}

// ToModel converts the override into its domain form.
func (r *ExecutionTargetRequest) ToModel() *models.ExecutionTarget {
	return &models.ExecutionTarget{
		IntegrationID: r.IntegrationID,
		Name:          r.Name,
		Type:          models.ProviderType(r.Type),
		Config:        r.Config,
	}
}

// CreateRunsRequest represents the request body for executing test cases.
type CreateRunsRequest struct {
	TestSuiteID    string                  `json:"test_suite_id"             validate:"required"`
	TestCaseIDs    []string                `json:"test_case_ids"             validate:"required,min=1"`
	Mode           string                  `json:"mode,omitempty"            validate:"omitempty,oneof=managed observed"`
	TargetOverride *ExecutionTargetRequest `json:"target_override,omitempty"`
	SkipUnresolved bool                    `json:"skip_unresolved,omitempty"`
}

// ReportResultRequest represents the request body for reporting a run result.
type ReportResultRequest struct {
	Passed *bool `json:"passed" validate:"required"`
}
