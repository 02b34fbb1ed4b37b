package configs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Settings holds the directories and overrides Kōwhai runs with.
type Settings struct {
	ConfigDir string `env:"KOWHAI_CONFIG_DIR"`
	DataDir   string `env:"KOWHAI_DATA_DIR"`
	VaultDir  string `env:"KOWHAI_VAULT"`
	Device    string `env:"KOWHAI_DEVICE"`
	KeyBits   int    `env:"KOWHAI_KEY_BITS" envDefault:"4096"`
}

// LoadSettings reads settings from the environment and fills in platform
// defaults.
func LoadSettings() (*Settings, error) {
	settings := &Settings{}
	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if settings.ConfigDir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("error getting config directory: %w", err)
		}
		settings.ConfigDir = filepath.Join(configDir, "kowhai")
	}

	if settings.DataDir == "" {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("error getting home directory: %w", err)
			}
			dataDir = filepath.Join(homeDir, ".local", "share")
		}
		settings.DataDir = filepath.Join(dataDir, "kowhai")
	}

	return settings, nil
}

// UserConfigPath returns the path of the user config file.
func (s *Settings) UserConfigPath() string {
	return filepath.Join(s.ConfigDir, "config.toml")
}

// DeviceKeyPaths returns the private and public key paths of a device in a vault.
func (s *Settings) DeviceKeyPaths(vaultUUID, alias string) (string, string) {
	dir := filepath.Join(s.DataDir, "keys", vaultUUID, alias)
	return filepath.Join(dir, "privkey"), filepath.Join(dir, "pubkey.pub")
}

// ResolveVault returns the vault root to use: KOWHAI_VAULT when set,
// otherwise the nearest vault above the working directory. It returns an
// empty string when there is none.
func (s *Settings) ResolveVault() (string, error) {
	if s.VaultDir != "" {
		root, err := filepath.Abs(s.VaultDir)
		if err != nil {
			return "", fmt.Errorf("failed to resolve vault path: %w", err)
		}
		if !IsVault(root) {
			return "", nil
		}
		return root, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return FindVaultRoot(wd)
}
