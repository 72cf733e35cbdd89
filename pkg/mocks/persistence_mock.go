package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
)

// MockTestRunRepository is a mock implementation of persistence.TestRunRepository interface.
type MockTestRunRepository struct {
	mock.Mock
}

func (m *MockTestRunRepository) Save(ctx context.Context, run *models.TestRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockTestRunRepository) GetByID(ctx context.Context, id string) (*models.TestRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TestRun), args.Error(1)
}

func (m *MockTestRunRepository) GetAll(ctx context.Context) ([]*models.TestRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TestRun), args.Error(1)
}

// MockTestCaseRepository is a mock implementation of persistence.TestCaseRepository interface.
type MockTestCaseRepository struct {
	mock.Mock
}

func (m *MockTestCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	args := m.Called(ctx, testCase)

	return args.Error(0)
}

func (m *MockTestCaseRepository) GetByID(ctx context.Context, id string) (*models.TestCase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TestCase), args.Error(1)
}

func (m *MockTestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TestCase), args.Error(1)
}

// MockTestSuiteRepository is a mock implementation of persistence.TestSuiteRepository interface.
type MockTestSuiteRepository struct {
	mock.Mock
}

func (m *MockTestSuiteRepository) Save(ctx context.Context, suite *models.TestSuite) error {
	args := m.Called(ctx, suite)

	return args.Error(0)
}

func (m *MockTestSuiteRepository) GetByID(ctx context.Context, id string) (*models.TestSuite, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TestSuite), args.Error(1)
}

func (m *MockTestSuiteRepository) GetAll(ctx context.Context) ([]*models.TestSuite, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.TestSuite), args.Error(1)
}

func (m *MockTestSuiteRepository) SuiteForTestCase(ctx context.Context, testCaseID string) (*models.TestSuite, error) {
	args := m.Called(ctx, testCaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.TestSuite), args.Error(1)
}

// MockIntegrationRepository is a mock implementation of persistence.IntegrationRepository interface.
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) Save(ctx context.Context, integration *models.Integration) error {
	args := m.Called(ctx, integration)

	return args.Error(0)
}

func (m *MockIntegrationRepository) GetByID(ctx context.Context, id string) (*models.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) GetAll(ctx context.Context) ([]*models.Integration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Default(ctx context.Context) (*models.Integration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Integration), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	TestRuns     *MockTestRunRepository
	TestCases    *MockTestCaseRepository
	TestSuites   *MockTestSuiteRepository
	Integrations *MockIntegrationRepository
}

// NewMockPersistence creates a persistence mock with all repository mocks attached.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		TestRuns:     &MockTestRunRepository{},
		TestCases:    &MockTestCaseRepository{},
		TestSuites:   &MockTestSuiteRepository{},
		Integrations: &MockIntegrationRepository{},
	}
}

func (m *MockPersistence) TestRunRepository() persistence.TestRunRepository {
	return m.TestRuns
}

func (m *MockPersistence) TestCaseRepository() persistence.TestCaseRepository {
	return m.TestCases
}

func (m *MockPersistence) TestSuiteRepository() persistence.TestSuiteRepository {
	return m.TestSuites
}

func (m *MockPersistence) IntegrationRepository() persistence.IntegrationRepository {
	return m.Integrations
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
