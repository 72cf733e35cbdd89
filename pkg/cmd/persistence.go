package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caselab/runway/pkg/persistence"
	"github.com/caselab/runway/pkg/persistence/file"
	"github.com/caselab/runway/pkg/persistence/postgresql"
)

// NewPersistence builds the persistence layer from a database URL. Anything
// without a recognized scheme is treated as a filesystem path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch persistenceProvider(databaseURL) {
	case "postgres":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgresql persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

func persistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	if scheme == "postgres" || scheme == "postgresql" {
		return "postgres"
	}

	return scheme
}
