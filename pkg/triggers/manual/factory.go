package manual

import (
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

// NewTriggerFactory creates the manual trigger factory. Manual runs need no
// integration.
func NewTriggerFactory() protocol.TriggerFactory {
	return &TriggerFactory{}
}

type TriggerFactory struct{}

func (f *TriggerFactory) ProviderType() models.ProviderType {
	return models.ProviderManual
}

func (f *TriggerFactory) Create(_ *models.Integration, logger *slog.Logger) (protocol.Trigger, error) {
	return NewTrigger(logger), nil
}
