package crypto

import (
	"errors"
	"fmt"
	"os"
)

type envKeyring struct{}

// GetKey reads the encryption key from $BILLHOURS_DB_KEY
func (envKeyring) GetKey() (string, error) {
	key := os.Getenv(EnvKey)
	if key == "" {
		return "", fmt.Errorf("%s not set: %w", EnvKey, ErrNoKey)
	}
	return key, nil
}

func (envKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	return fmt.Errorf("no keyring on this platform: export %s (or put it in .env) to store the key", EnvKey)
}

// IsAvailable is false: the environment can be read but never written
func (envKeyring) IsAvailable() bool {
	return false
}
