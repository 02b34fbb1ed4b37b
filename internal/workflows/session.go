package workflows

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/backend"
	"github.com/PolarWolf314/kowhai/internal/configs"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/identity"
	"github.com/PolarWolf314/kowhai/internal/snapshot"
)

// Scope selects the settings, vault and device a workflow runs with.
type Scope struct {
	// Settings are loaded from the environment when nil.
	Settings *configs.Settings

	// VaultDir overrides vault discovery.
	VaultDir string

	// Device overrides the device alias recorded for the vault.
	Device string
}

func (s Scope) settings() (*configs.Settings, error) {
	if s.Settings != nil {
		return s.Settings, nil
	}
	return configs.LoadSettings()
}

// session is one workflow's view of a vault: the configs, the caller and a
// backend restored from the vault's snapshot.
type session struct {
	settings *configs.Settings
	vault    configs.Vault
	config   *configs.VaultConfig
	user     *configs.UserConfig
	caller   identity.Identity
	device   string
	service  *backend.Service
}

func openSession(ctx context.Context, scope Scope) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := scope.settings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	root, err := resolveVault(scope, settings)
	if err != nil {
		return nil, err
	}
	vault := configs.Vault{Root: root}

	vaultConfig, err := configs.LoadVaultConfig(vault)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrInvalidVaultConfig, err)
	}
	if vaultConfig.Vault.UUID == "" {
		return nil, fmt.Errorf("%w: missing vault_uuid", kerrors.ErrInvalidVaultConfig)
	}

	userConfig, err := configs.EnsureUserConfig(settings)
	if err != nil {
		return nil, fmt.Errorf("loading user config: %w", err)
	}

	state, err := snapshot.Load(vault.StatePath())
	if err != nil {
		return nil, err
	}

	device := scope.Device
	if device == "" {
		device = settings.Device
	}
	if device == "" {
		device = userConfig.Vaults[vaultConfig.Vault.UUID]
	}

	return &session{
		settings: settings,
		vault:    vault,
		config:   vaultConfig,
		user:     userConfig,
		caller:   identity.Identity(userConfig.User.Identity),
		device:   device,
		service:  backend.Restore(state),
	}, nil
}

func resolveVault(scope Scope, settings *configs.Settings) (string, error) {
	if scope.VaultDir != "" {
		if !configs.IsVault(scope.VaultDir) {
			return "", kerrors.ErrVaultNotInitialized
		}
		return scope.VaultDir, nil
	}

	root, err := settings.ResolveVault()
	if err != nil {
		return "", fmt.Errorf("finding vault: %w", err)
	}
	if root == "" {
		return "", kerrors.ErrVaultNotInitialized
	}
	return root, nil
}

// persist saves the snapshot after a backend call. Aborted calls are not
// saved; typed errors are, so that partial uploads survive.
func (s *session) persist(callErr error) error {
	if errors.Is(callErr, kerrors.ErrCallAborted) {
		return callErr
	}
	if err := snapshot.Save(s.vault.StatePath(), s.service.Export()); err != nil {
		return err
	}
	return callErr
}

func (s *session) audit(entry audit.Entry) {
	entry.Identity = string(s.caller)
	entry.Device = s.device
	audit.Log(s.vault.AuditPath(), entry)
}

func (s *session) keyPaths(alias string) (string, string) {
	return s.settings.DeviceKeyPaths(s.config.Vault.UUID, alias)
}

// deviceKeys loads this machine's private key and the public key string the
// registry knows it by.
func (s *session) deviceKeys() (*rsa.PrivateKey, string, error) {
	if s.device == "" {
		return nil, "", kerrors.ErrNoDevice
	}

	privatePath, _ := s.keyPaths(s.device)
	privateKey, err := devicekeys.LoadPrivateKey(privatePath)
	if err != nil {
		return nil, "", err
	}

	publicKey, err := devicekeys.EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, "", err
	}
	return privateKey, publicKey, nil
}

// symmetricKey fetches and unwraps the vault key for this device. The
// caller must Zero the returned key.
func (s *session) symmetricKey() ([]byte, error) {
	privateKey, publicKey, err := s.deviceKeys()
	if err != nil {
		return nil, err
	}

	has, err := s.service.IsEncryptedSymmetricKeyRegistered(s.caller)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, kerrors.ErrNoSymmetricKey
	}

	wrapped, err := s.service.EncryptedSymmetricKey(s.caller, publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kerrors.ErrNoSymmetricKey, err)
	}
	return devicekeys.UnwrapSymmetricKey(wrapped, privateKey)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
