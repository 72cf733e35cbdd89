package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/caselab/runway/pkg/models"
	"github.com/caselab/runway/pkg/persistence"
)

// IntegrationRepository handles provider-integration database operations.
type IntegrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIntegrationRepository creates a new integration repository.
func NewIntegrationRepository(db *sql.DB, logger *slog.Logger) *IntegrationRepository {
	return &IntegrationRepository{db: db, logger: logger}
}

func (r *IntegrationRepository) Save(ctx context.Context, integration *models.Integration) error {
	config, err := json.Marshal(integration.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal integration config: %w", err)
	}

	query := `
		INSERT INTO integrations (id, name, type, enabled, is_default, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			enabled = EXCLUDED.enabled,
			is_default = EXCLUDED.is_default,
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		integration.ID, integration.Name, integration.Type, integration.Enabled,
		integration.IsDefault, config, integration.CreatedAt, integration.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save integration %s: %w", integration.ID, err)
	}

	return nil
}

func (r *IntegrationRepository) GetByID(ctx context.Context, id string) (*models.Integration, error) {
	query := `
		SELECT id, name, type, enabled, is_default, config, created_at, updated_at
		FROM integrations
		WHERE id = $1
	`

	integration, err := scanIntegration(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("integration %s: %w", id, persistence.ErrIntegrationNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch integration %s: %w", id, err)
	}

	return integration, nil
}

func (r *IntegrationRepository) GetAll(ctx context.Context) ([]*models.Integration, error) {
	query := `
		SELECT id, name, type, enabled, is_default, config, created_at, updated_at
		FROM integrations
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	integrations := make([]*models.Integration, 0)

	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}

		integrations = append(integrations, integration)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating integrations: %w", err)
	}

	return integrations, nil
}

// Default returns the integration marked as the project-level default.
func (r *IntegrationRepository) Default(ctx context.Context) (*models.Integration, error) {
	query := `
		SELECT id, name, type, enabled, is_default, config, created_at, updated_at
		FROM integrations
		WHERE is_default
		LIMIT 1
	`

	integration, err := scanIntegration(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrDefaultIntegrationNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch default integration: %w", err)
	}

	return integration, nil
}

func scanIntegration(row rowScanner) (*models.Integration, error) {
	var (
		integration models.Integration
		config      []byte
	)

	err := row.Scan(&integration.ID, &integration.Name, &integration.Type, &integration.Enabled,
		&integration.IsDefault, &config, &integration.CreatedAt, &integration.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(config, &integration.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal integration config: %w", err)
	}

	return &integration, nil
}
