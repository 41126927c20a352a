package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/persistence"
	"github.com/birun/console/pkg/persistence/file"
	"github.com/birun/console/pkg/persistence/remote"
)

var ErrUnsupportedURL = errors.New("unsupported database url")

var supportedPersistenceProviders = []string{"file", "http", "https"}

// NewPersistence selects the workflow store for databaseURL. An empty url means the remote API behind client.
func NewPersistence(databaseURL string, client *api.Client) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "", "http", "https":
		if client == nil {
			return nil, fmt.Errorf("%w: %q needs an api client", ErrUnsupportedURL, databaseURL)
		}

		return remote.NewPersistence(client), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedURL, databaseURL, strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	if databaseURL == "" {
		return ""
	}

	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "unknown"
	}

	return provider
}
