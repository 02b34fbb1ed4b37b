package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

type UserConfig struct {
	User   User              `toml:"user"`
	Vaults map[string]string `toml:"vaults"`
}

type User struct {
	Identity      string `toml:"identity"`
	Email         string `toml:"email"`
	DefaultDevice string `toml:"default_device"`
}

type VaultConfig struct {
	Vault VaultInfo `toml:"vault"`
}

type VaultInfo struct {
	UUID      string    `toml:"vault_uuid"`
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
}

// LoadUserConfig loads the user configuration. A missing file yields an
// empty config.
func LoadUserConfig(settings *Settings) (*UserConfig, error) {
	configPath := settings.UserConfigPath()

	config := &UserConfig{
		Vaults: make(map[string]string),
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if config.Vaults == nil {
		config.Vaults = make(map[string]string)
	}

	return config, nil
}

// SaveUserConfig saves the user configuration.
func SaveUserConfig(settings *Settings, config *UserConfig) error {
	if err := SaveTOML(settings.UserConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}

// GenerateIdentity generates a new identity UUID.
func GenerateIdentity() string {
	return uuid.New().String()
}

// EnsureUserConfig ensures the user configuration exists and has an identity.
func EnsureUserConfig(settings *Settings) (*UserConfig, error) {
	config, err := LoadUserConfig(settings)
	if err != nil {
		return nil, err
	}

	if config.User.Identity == "" {
		config.User.Identity = GenerateIdentity()
		if err := SaveUserConfig(settings, config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// LoadVaultConfig loads the configuration of the vault at root.
func LoadVaultConfig(vault Vault) (*VaultConfig, error) {
	config := &VaultConfig{}
	if err := LoadTOML(vault.ConfigPath(), config); err != nil {
		return nil, fmt.Errorf("failed to load vault config: %w", err)
	}
	return config, nil
}

// SaveVaultConfig saves the configuration of the vault at root.
func SaveVaultConfig(vault Vault, config *VaultConfig) error {
	if err := SaveTOML(vault.ConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save vault config: %w", err)
	}
	return nil
}

// GenerateVaultUUID generates a new UUID for a vault.
func GenerateVaultUUID() string {
	return uuid.New().String()
}
