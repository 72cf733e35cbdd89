// Package persistence provides data storage abstraction for test runs,
// test catalog entities and provider integrations.
package persistence

import (
	"context"

	"github.com/caselab/runway/pkg/models"
)

type Persistence interface {
	TestRunRepository() TestRunRepository
	TestCaseRepository() TestCaseRepository
	TestSuiteRepository() TestSuiteRepository
	IntegrationRepository() IntegrationRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// TestRunRepository stores test-run records. Save is an upsert; runs are
// written before any provider call so a crash between the two cannot lose
// the record.
type TestRunRepository interface {
	Save(ctx context.Context, run *models.TestRun) error
	GetByID(ctx context.Context, id string) (*models.TestRun, error)
	GetAll(ctx context.Context) ([]*models.TestRun, error)
}

// TestCaseRepository reads the test case catalog. The catalog itself is
// managed by the host test-management tool; this service only consumes it.
type TestCaseRepository interface {
	Save(ctx context.Context, testCase *models.TestCase) error
	GetByID(ctx context.Context, id string) (*models.TestCase, error)
	GetAll(ctx context.Context) ([]*models.TestCase, error)
}

// TestSuiteRepository reads test suites, including the reverse lookup from
// a test case to the suite containing it.
type TestSuiteRepository interface {
	Save(ctx context.Context, suite *models.TestSuite) error
	GetByID(ctx context.Context, id string) (*models.TestSuite, error)
	GetAll(ctx context.Context) ([]*models.TestSuite, error)
	SuiteForTestCase(ctx context.Context, testCaseID string) (*models.TestSuite, error)
}

// IntegrationRepository reads provider integrations.
type IntegrationRepository interface {
	Save(ctx context.Context, integration *models.Integration) error
	GetByID(ctx context.Context, id string) (*models.Integration, error)
	GetAll(ctx context.Context) ([]*models.Integration, error)
	Default(ctx context.Context) (*models.Integration, error)
}
