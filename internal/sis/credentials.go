package sis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrNoCredentials = errors.New("no SIS credentials configured")

// Credentials are the single sign-on username and password.
type Credentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// LoadCredentials reads {"user": ..., "pass": ...} from path. SIS_USER and
// SIS_PASS override the file, and the file may be absent when both are set.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &creds); err != nil {
			return creds, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return creds, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if user := os.Getenv("SIS_USER"); user != "" {
		creds.User = user
	}
	if pass := os.Getenv("SIS_PASS"); pass != "" {
		creds.Pass = pass
	}

	if creds.User == "" || creds.Pass == "" {
		return creds, ErrNoCredentials
	}
	return creds, nil
}
