package gitlab

import (
	"errors"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

// ErrIntegrationNil is returned when the factory is called without an integration.
var ErrIntegrationNil = errors.New("gitlab trigger requires an integration")

// NewTriggerFactory creates the GitLab trigger factory.
func NewTriggerFactory() protocol.TriggerFactory {
	return &TriggerFactory{}
}

type TriggerFactory struct{}

func (f *TriggerFactory) ProviderType() models.ProviderType {
	return models.ProviderGitLab
}

func (f *TriggerFactory) Create(integration *models.Integration, logger *slog.Logger) (protocol.Trigger, error) {
	if integration == nil {
		return nil, ErrIntegrationNil
	}

	return NewTrigger(integration, logger)
}
