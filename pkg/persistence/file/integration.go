package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
)

// IntegrationRepository handles provider-integration file operations.
type IntegrationRepository struct {
	root string
}

// NewIntegrationRepository creates a new integration repository.
func NewIntegrationRepository(root string) *IntegrationRepository {
	return &IntegrationRepository{root: root}
}

func (ir *IntegrationRepository) GetByID(_ context.Context, id string) (*models.Integration, error) {
	filePath := filepath.Clean(path.Join(ir.root, "integrations", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("integration %s: %w", id, persistence.ErrIntegrationNotFound)
		}

		return nil, fmt.Errorf("failed to fetch integration %s: %w", id, err)
	}

	var integration models.Integration

	err = json.Unmarshal(body, &integration)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal integration %s: %w", id, err)
	}

	return &integration, nil
}

func (ir *IntegrationRepository) GetAll(ctx context.Context) ([]*models.Integration, error) {
	root := os.DirFS(path.Join(ir.root, "integrations"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list integration files: %w", err)
	}

	integrations := make([]*models.Integration, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		integration, err := ir.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		integrations = append(integrations, integration)
	}

	return integrations, nil
}

// Default returns the integration marked as the project-level default.
func (ir *IntegrationRepository) Default(ctx context.Context) (*models.Integration, error) {
	integrations, err := ir.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, integration := range integrations {
		if integration.IsDefault {
			return integration, nil
		}
	}

	return nil, persistence.ErrDefaultIntegrationNotFound
}

func (ir *IntegrationRepository) Save(_ context.Context, integration *models.Integration) error {
	err := os.MkdirAll(path.Join(ir.root, "integrations"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create integrations directory: %w", err)
	}

	data, err := json.MarshalIndent(integration, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal integration %s: %w", integration.ID, err)
	}

	filePath := path.Join(ir.root, "integrations", integration.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
