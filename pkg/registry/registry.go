// Package registry maps provider types to trigger adapter factories.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/protocol"
)

// ErrUnknownProvider is returned when no factory is registered for a
// provider type. The provider set is closed; an unknown type is a
// programming or data error, never something to fall through silently.
var ErrUnknownProvider = errors.New("unknown provider type")

type Registry struct {
	logger    *slog.Logger
	factories map[models.ProviderType]protocol.TriggerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ProviderType]protocol.TriggerFactory),
	}
}

// RegisterTrigger registers a trigger factory under its provider type.
func (r *Registry) RegisterTrigger(factory protocol.TriggerFactory) {
	r.factories[factory.ProviderType()] = factory
}

// CreateTrigger builds the trigger adapter for the given provider type from
// an integration. The integration may be nil only for the manual provider.
func (r *Registry) CreateTrigger(providerType models.ProviderType, integration *models.Integration) (protocol.Trigger, error) {
	factory, ok := r.factories[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerType)
	}

	trigger, err := factory.Create(integration, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s trigger: %w", providerType, err)
	}

	return trigger, nil
}

// ProviderTypes returns the registered provider types.
func (r *Registry) ProviderTypes() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(r.factories))
	for providerType := range r.factories {
		types = append(types, providerType)
	}

	return types
}

// HealthCheck reports whether any provider factory is registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "No trigger factories registered", false
	}

	return fmt.Sprintf("%d trigger factories registered", len(r.factories)), true
}
