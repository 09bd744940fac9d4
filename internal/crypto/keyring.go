package crypto

import "errors"

// Keyring provides secure key storage abstraction
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	IsAvailable() bool
}

const (
	ServiceName = "billhours"
	KeyName     = "db-encryption-key"

	// EnvKey holds the database key when no system keyring is used
	EnvKey = "BILLHOURS_DB_KEY"
)

// ErrNoKey is returned when no store holds a key yet
var ErrNoKey = errors.New("encryption key not found")

// NewKeyring returns the environment key store backed by the best
// available platform keyring
func NewKeyring() Keyring {
	return &chainKeyring{env: envKeyring{}, platform: newPlatformKeyring()}
}

// chainKeyring reads $BILLHOURS_DB_KEY first and writes to the platform store
type chainKeyring struct {
	env      Keyring
	platform Keyring
}

func (k *chainKeyring) GetKey() (string, error) {
	if key, err := k.env.GetKey(); err == nil {
		return key, nil
	}
	return k.platform.GetKey()
}

func (k *chainKeyring) SetKey(password string) error {
	return k.platform.SetKey(password)
}

// IsAvailable reports whether a new key could be stored
func (k *chainKeyring) IsAvailable() bool {
	return k.platform.IsAvailable()
}
