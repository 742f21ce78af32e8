// Package gcp resolves the project and credentials shared by the Pub/Sub and
// BigQuery clients.
package gcp

import (
	"errors"
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/kardex-pos/pkg/config"
)

var ErrProjectIDRequired = errors.New("gcp project id is required")

func ProjectID(cfg config.GCPConfig) (string, error) {
	id := strings.TrimSpace(cfg.ProjectID)
	if id == "" {
		return "", ErrProjectIDRequired
	}
	return id, nil
}

// ClientOptions prefers inline JSON credentials over a credentials file. With
// neither set the libraries fall back to application default credentials, or
// to the emulator when PUBSUB_EMULATOR_HOST is exported.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
