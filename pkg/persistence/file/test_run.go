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

// TestRunRepository handles test-run file operations, one JSON file per run.
type TestRunRepository struct {
	root string
}

// NewTestRunRepository creates a new test-run repository.
func NewTestRunRepository(root string) *TestRunRepository {
	return &TestRunRepository{root: root}
}

// GetByID retrieves a test run by its ID from the file system.
func (tr *TestRunRepository) GetByID(_ context.Context, id string) (*models.TestRun, error) {
	filePath := filepath.Clean(path.Join(tr.root, "test_runs", id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewTestRunError("GetByID", id, persistence.ErrTestRunNotFound)
		}

		return nil, persistence.NewTestRunError("GetByID", id, err)
	}

	var run models.TestRun

	err = json.Unmarshal(body, &run)
	if err != nil {
		return nil, persistence.NewTestRunError("GetByID", id, err)
	}

	return &run, nil
}

// GetAll returns every stored test run.
func (tr *TestRunRepository) GetAll(ctx context.Context) ([]*models.TestRun, error) {
	root := os.DirFS(path.Join(tr.root, "test_runs"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list test run files: %w", err)
	}

	runs := make([]*models.TestRun, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		run, err := tr.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	return runs, nil
}

// Save writes a test run to the file system.
func (tr *TestRunRepository) Save(_ context.Context, run *models.TestRun) error {
	err := os.MkdirAll(path.Join(tr.root, "test_runs"), 0750)
	if err != nil {
		return persistence.NewTestRunError("Save", run.ID, err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return persistence.NewTestRunError("Save", run.ID, err)
	}

	filePath := path.Join(tr.root, "test_runs", run.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}
