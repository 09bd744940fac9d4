package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeyring struct{ key string }

func (m *memKeyring) GetKey() (string, error) {
	if m.key == "" {
		return "", ErrNoKey
	}
	return m.key, nil
}
func (m *memKeyring) SetKey(p string) error { m.key = p; return nil }
func (m *memKeyring) IsAvailable() bool     { return true }

func TestChainPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvKey, "from-env")
	platform := &memKeyring{key: "from-keychain"}
	k := &chainKeyring{env: envKeyring{}, platform: platform}

	key, err := k.GetKey()
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestChainFallsBackToPlatform(t *testing.T) {
	t.Setenv(EnvKey, "")
	platform := &memKeyring{}
	k := &chainKeyring{env: envKeyring{}, platform: platform}

	_, err := k.GetKey()
	assert.ErrorIs(t, err, ErrNoKey)

	require.NoError(t, k.SetKey("secret"))
	key, err := k.GetKey()
	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestEnvKeyringNeverEchoesPassword(t *testing.T) {
	err := envKeyring{}.SetKey("hunter2")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
	assert.Contains(t, err.Error(), EnvKey)
}

func TestChainAvailabilityFollowsPlatform(t *testing.T) {
	t.Setenv(EnvKey, "from-env")

	assert.False(t, (&chainKeyring{env: envKeyring{}, platform: envKeyring{}}).IsAvailable())
	assert.True(t, (&chainKeyring{env: envKeyring{}, platform: &memKeyring{}}).IsAvailable())
}
