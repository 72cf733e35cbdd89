// Package postgresql provides PostgreSQL persistence for test runs, the test
// catalog and provider integrations.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	testRunRepo     *TestRunRepository
	testCaseRepo    *TestCaseRepository
	testSuiteRepo   *TestSuiteRepository
	integrationRepo *IntegrationRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and runs
// migrations on initialization.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:              database,
		logger:          logger,
		testRunRepo:     NewTestRunRepository(database, logger),
		testCaseRepo:    NewTestCaseRepository(database, logger),
		testSuiteRepo:   NewTestSuiteRepository(database, logger),
		integrationRepo: NewIntegrationRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) TestRunRepository() persistence.TestRunRepository {
	return p.testRunRepo
}

func (p *Persistence) TestCaseRepository() persistence.TestCaseRepository {
	return p.testCaseRepo
}

func (p *Persistence) TestSuiteRepository() persistence.TestSuiteRepository {
	return p.testSuiteRepo
}

func (p *Persistence) IntegrationRepository() persistence.IntegrationRepository {
	return p.integrationRepo
}
