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

// TestCaseRepository handles test-case database operations.
type TestCaseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTestCaseRepository creates a new test-case repository.
func NewTestCaseRepository(db *sql.DB, logger *slog.Logger) *TestCaseRepository {
	return &TestCaseRepository{db: db, logger: logger}
}

func (r *TestCaseRepository) Save(ctx context.Context, testCase *models.TestCase) error {
	target, err := marshalNullableJSON(testCase.ExecutionTarget)
	if err != nil {
		return fmt.Errorf("failed to marshal execution target: %w", err)
	}

	query := `
		INSERT INTO test_cases (id, name, execution_target, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			execution_target = EXCLUDED.execution_target,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		testCase.ID, testCase.Name, target, testCase.CreatedAt, testCase.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save test case %s: %w", testCase.ID, err)
	}

	return nil
}

func (r *TestCaseRepository) GetByID(ctx context.Context, id string) (*models.TestCase, error) {
	query := `
		SELECT id, name, execution_target, created_at, updated_at
		FROM test_cases
		WHERE id = $1
	`

	var (
		testCase models.TestCase
		target   []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&testCase.ID, &testCase.Name, &target, &testCase.CreatedAt, &testCase.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("test case %s: %w", id, persistence.ErrTestCaseNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch test case %s: %w", id, err)
	}

	if len(target) > 0 {
		err = json.Unmarshal(target, &testCase.ExecutionTarget)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution target for test case %s: %w", id, err)
		}
	}

	return &testCase, nil
}

func (r *TestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	query := `
		SELECT id, name, execution_target, created_at, updated_at
		FROM test_cases
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query test cases: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	testCases := make([]*models.TestCase, 0)

	for rows.Next() {
		var (
			testCase models.TestCase
			target   []byte
		)

		err = rows.Scan(&testCase.ID, &testCase.Name, &target, &testCase.CreatedAt, &testCase.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test case: %w", err)
		}

		if len(target) > 0 {
			err = json.Unmarshal(target, &testCase.ExecutionTarget)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal execution target: %w", err)
			}
		}

		testCases = append(testCases, &testCase)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating test cases: %w", err)
	}

	return testCases, nil
}

// marshalNullableJSON marshals v, mapping nil pointers to SQL NULL.
func marshalNullableJSON(v any) (any, error) {
	switch value := v.(type) {
	case *models.ExecutionTarget:
		if value == nil {
			return nil, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return data, nil
}
