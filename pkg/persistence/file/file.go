// Package file provides file-based persistence for test runs, the test
// catalog and provider integrations. Intended for development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/caselab/runway/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root            string
	testRunRepo     *TestRunRepository
	testCaseRepo    *TestCaseRepository
	testSuiteRepo   *TestSuiteRepository
	integrationRepo *IntegrationRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:            cleanRoot,
		testRunRepo:     NewTestRunRepository(cleanRoot),
		testCaseRepo:    NewTestCaseRepository(cleanRoot),
		testSuiteRepo:   NewTestSuiteRepository(cleanRoot),
		integrationRepo: NewIntegrationRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) TestRunRepository() persistence.TestRunRepository {
	return fp.testRunRepo
}

func (fp *Persistence) TestCaseRepository() persistence.TestCaseRepository {
	return fp.testCaseRepo
}

func (fp *Persistence) TestSuiteRepository() persistence.TestSuiteRepository {
	return fp.testSuiteRepo
}

func (fp *Persistence) IntegrationRepository() persistence.IntegrationRepository {
	return fp.integrationRepo
}
