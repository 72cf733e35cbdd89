package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/caselab/runway/pkg/models"
)

// MockDispatcher is a mock implementation of dispatch.Dispatcher interface.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, run *models.TestRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}
