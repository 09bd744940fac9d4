//go:build darwin

package crypto

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keychain stores one secret under ServiceName in the macOS Keychain
type keychain struct {
	account string
}

func newPlatformKeyring() Keyring {
	return keychain{account: KeyName}
}

func (k keychain) GetKey() (string, error) {
	key, err := keyring.Get(ServiceName, k.account)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("keychain %s/%s: %w", ServiceName, k.account, ErrNoKey)
	case err != nil:
		return "", fmt.Errorf("keychain read: %w", err)
	case key == "":
		return "", fmt.Errorf("keychain %s/%s is empty: %w", ServiceName, k.account, ErrNoKey)
	}
	return key, nil
}

func (k keychain) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	if err := keyring.Set(ServiceName, k.account, password); err != nil {
		return fmt.Errorf("keychain write: %w", err)
	}
	return nil
}

// IsAvailable probes the keychain with a throwaway entry
func (k keychain) IsAvailable() bool {
	probe := k.account + ".probe"
	if err := keyring.Set(ServiceName, probe, "ok"); err != nil {
		return false
	}
	_ = keyring.Delete(ServiceName, probe)
	return true
}
