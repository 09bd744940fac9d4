//go:build !darwin

package crypto

// Only the environment variable is supported off macOS
func newPlatformKeyring() Keyring {
	return envKeyring{}
}
