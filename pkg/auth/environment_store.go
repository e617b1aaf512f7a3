package auth

import (
	"os"
	"strings"
)

// TokenEnvVars are checked in order by EnvironmentStore
var TokenEnvVars = []string{"STICKERDL_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"}

// EnvironmentSource is the name Manager.Load reports for a token read from
// the environment
const EnvironmentSource = "environment"

// TokenVariable returns the first variable of TokenEnvVars that holds a
// token, or "" when none does
func TokenVariable() string {
	for _, name := range TokenEnvVars {
		if strings.TrimSpace(os.Getenv(name)) != "" {
			return name
		}
	}
	return ""
}

// EnvironmentStore reads the token from the environment. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Name() string {
	return EnvironmentSource
}

func (e *EnvironmentStore) Load() (string, error) {
	name := TokenVariable()
	if name == "" {
		return "", ErrTokenNotFound
	}
	return strings.TrimSpace(os.Getenv(name)), nil
}

func (e *EnvironmentStore) Save(token string) error {
	return ErrReadOnly
}

func (e *EnvironmentStore) Delete() error {
	return ErrReadOnly
}
