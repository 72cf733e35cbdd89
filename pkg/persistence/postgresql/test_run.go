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

// TestRunRepository handles test-run database operations.
type TestRunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTestRunRepository creates a new test-run repository.
func NewTestRunRepository(db *sql.DB, logger *slog.Logger) *TestRunRepository {
	return &TestRunRepository{db: db, logger: logger}
}

// Save upserts a test run.
func (r *TestRunRepository) Save(ctx context.Context, run *models.TestRun) error {
	caseIDs, err := json.Marshal(run.TestCaseIDs)
	if err != nil {
		return persistence.NewTestRunError("Save", run.ID, err)
	}

	target, err := json.Marshal(run.ExecutionTarget)
	if err != nil {
		return persistence.NewTestRunError("Save", run.ID, err)
	}

	query := `
		INSERT INTO test_runs (id, test_suite_id, test_case_ids, execution_target, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.TestSuiteID, caseIDs, target, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return persistence.NewTestRunError("Save", run.ID, err)
	}

	return nil
}

// GetByID returns a test run by its ID.
func (r *TestRunRepository) GetByID(ctx context.Context, id string) (*models.TestRun, error) {
	query := `
		SELECT
			id
		  , test_suite_id
		  , test_case_ids
		  , execution_target
		  , status
		  , created_at
		  , updated_at
		FROM test_runs
		WHERE id = $1
	`

	run, err := scanTestRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewTestRunError("GetByID", id, persistence.ErrTestRunNotFound)
	}

	if err != nil {
		return nil, persistence.NewTestRunError("GetByID", id, err)
	}

	return run, nil
}

// GetAll returns all test runs, newest first.
func (r *TestRunRepository) GetAll(ctx context.Context) ([]*models.TestRun, error) {
	query := `
		SELECT
			id
		  , test_suite_id
		  , test_case_ids
		  , execution_target
		  , status
		  , created_at
		  , updated_at
		FROM test_runs
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query test runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.TestRun, 0)

	for rows.Next() {
		run, err := scanTestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating test runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTestRun(row rowScanner) (*models.TestRun, error) {
	var (
		run     models.TestRun
		caseIDs []byte
		target  []byte
	)

	err := row.Scan(&run.ID, &run.TestSuiteID, &caseIDs, &target, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(caseIDs, &run.TestCaseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal test case ids: %w", err)
	}

	err = json.Unmarshal(target, &run.ExecutionTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution target: %w", err)
	}

	return &run, nil
}
