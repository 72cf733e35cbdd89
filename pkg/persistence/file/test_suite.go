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

// TestSuiteRepository handles test-suite file operations.
type TestSuiteRepository struct {
	root string
}

// NewTestSuiteRepository creates a new test-suite repository.
func NewTestSuiteRepository(root string) *TestSuiteRepository {
	return &TestSuiteRepository{root: root}
}

func (ts *TestSuiteRepository) GetByID(_ context.Context, id string) (*models.TestSuite, error) {
	filePath := filepath.Clean(path.Join(ts.root, "test_suites", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("test suite %s: %w", id, persistence.ErrTestSuiteNotFound)
		}

		return nil, fmt.Errorf("failed to fetch test suite %s: %w", id, err)
	}

	var suite models.TestSuite

	err = json.Unmarshal(body, &suite)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal test suite %s: %w", id, err)
	}

	return &suite, nil
}

func (ts *TestSuiteRepository) GetAll(ctx context.Context) ([]*models.TestSuite, error) {
	root := os.DirFS(path.Join(ts.root, "test_suites"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list test suite files: %w", err)
	}

	suites := make([]*models.TestSuite, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		suite, err := ts.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		suites = append(suites, suite)
	}

	return suites, nil
}

// SuiteForTestCase finds the suite containing the given test case by scanning
// all suites. Reverse lookup, used by the execution target resolution cascade.
func (ts *TestSuiteRepository) SuiteForTestCase(ctx context.Context, testCaseID string) (*models.TestSuite, error) {
	suites, err := ts.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	for _, suite := range suites {
		if suite.Contains(testCaseID) {
			return suite, nil
		}
	}

	return nil, fmt.Errorf("no suite contains test case %s: %w", testCaseID, persistence.ErrTestSuiteNotFound)
}

func (ts *TestSuiteRepository) Save(_ context.Context, suite *models.TestSuite) error {
	err := os.MkdirAll(path.Join(ts.root, "test_suites"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create test_suites directory: %w", err)
	}

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test suite %s: %w", suite.ID, err)
	}

	filePath := path.Join(ts.root, "test_suites", suite.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
