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

// TestCaseRepository handles test-case file operations.
type TestCaseRepository struct {
	root string
}

// NewTestCaseRepository creates a new test-case repository.
func NewTestCaseRepository(root string) *TestCaseRepository {
	return &TestCaseRepository{root: root}
}

func (tc *TestCaseRepository) GetByID(_ context.Context, id string) (*models.TestCase, error) {
	filePath := filepath.Clean(path.Join(tc.root, "test_cases", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("test case %s: %w", id, persistence.ErrTestCaseNotFound)
		}

		return nil, fmt.Errorf("failed to fetch test case %s: %w", id, err)
	}

	var testCase models.TestCase

	err = json.Unmarshal(body, &testCase)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal test case %s: %w", id, err)
	}

	return &testCase, nil
}

func (tc *TestCaseRepository) GetAll(ctx context.Context) ([]*models.TestCase, error) {
	root := os.DirFS(path.Join(tc.root, "test_cases"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list test case files: %w", err)
	}

	testCases := make([]*models.TestCase, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		testCase, err := tc.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		testCases = append(testCases, testCase)
	}

	return testCases, nil
}

func (tc *TestCaseRepository) Save(_ context.Context, testCase *models.TestCase) error {
	err := os.MkdirAll(path.Join(tc.root, "test_cases"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create test_cases directory: %w", err)
	}

	data, err := json.MarshalIndent(testCase, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test case %s: %w", testCase.ID, err)
	}

	filePath := path.Join(tc.root, "test_cases", testCase.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
