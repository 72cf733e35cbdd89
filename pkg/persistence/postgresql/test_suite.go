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

// TestSuiteRepository handles test-suite database operations.
type TestSuiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTestSuiteRepository creates a new test-suite repository.
func NewTestSuiteRepository(db *sql.DB, logger *slog.Logger) *TestSuiteRepository {
	return &TestSuiteRepository{db: db, logger: logger}
}

func (r *TestSuiteRepository) Save(ctx context.Context, suite *models.TestSuite) error {
	caseIDs, err := json.Marshal(suite.TestCaseIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal test case ids: %w", err)
	}

	target, err := marshalNullableJSON(suite.DefaultExecutionTarget)
	if err != nil {
		return fmt.Errorf("failed to marshal default execution target: %w", err)
	}

	query := `
		INSERT INTO test_suites (id, name, test_case_ids, default_execution_target, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			test_case_ids = EXCLUDED.test_case_ids,
			default_execution_target = EXCLUDED.default_execution_target,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		suite.ID, suite.Name, caseIDs, target, suite.CreatedAt, suite.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save test suite %s: %w", suite.ID, err)
	}

	return nil
}

func (r *TestSuiteRepository) GetByID(ctx context.Context, id string) (*models.TestSuite, error) {
	query := `
		SELECT id, name, test_case_ids, default_execution_target, created_at, updated_at
		FROM test_suites
		WHERE id = $1
	`

	suite, err := scanTestSuite(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("test suite %s: %w", id, persistence.ErrTestSuiteNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch test suite %s: %w", id, err)
	}

	return suite, nil
}

func (r *TestSuiteRepository) GetAll(ctx context.Context) ([]*models.TestSuite, error) {
	query := `
		SELECT id, name, test_case_ids, default_execution_target, created_at, updated_at
		FROM test_suites
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query test suites: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	suites := make([]*models.TestSuite, 0)

	for rows.Next() {
		suite, err := scanTestSuite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test suite: %w", err)
		}

		suites = append(suites, suite)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating test suites: %w", err)
	}

	return suites, nil
}

// SuiteForTestCase finds the suite containing the given test case. The GIN
// index on test_case_ids keeps the containment query cheap.
func (r *TestSuiteRepository) SuiteForTestCase(ctx context.Context, testCaseID string) (*models.TestSuite, error) {
	query := `
		SELECT id, name, test_case_ids, default_execution_target, created_at, updated_at
		FROM test_suites
		WHERE test_case_ids @> to_jsonb(ARRAY[$1::text])
		LIMIT 1
	`

	suite, err := scanTestSuite(r.db.QueryRowContext(ctx, query, testCaseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no suite contains test case %s: %w", testCaseID, persistence.ErrTestSuiteNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find suite for test case %s: %w", testCaseID, err)
	}

	return suite, nil
}

func scanTestSuite(row rowScanner) (*models.TestSuite, error) {
	var (
		suite   models.TestSuite
		caseIDs []byte
		target  []byte
	)

	err := row.Scan(&suite.ID, &suite.Name, &caseIDs, &target, &suite.CreatedAt, &suite.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(caseIDs, &suite.TestCaseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal test case ids: %w", err)
	}

	if len(target) > 0 {
		err = json.Unmarshal(target, &suite.DefaultExecutionTarget)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal default execution target: %w", err)
		}
	}

	return &suite, nil
}
