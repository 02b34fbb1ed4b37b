package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/backend"
	"github.com/PolarWolf314/kowhai/internal/configs"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/snapshot"
)

// InitOptions configures the init workflow.
type InitOptions struct {
	Scope

	// Name is the vault name. Defaults to the directory name.
	Name string

	// Alias names the first device, as in RegisterOptions.
	Alias string
}

// InitResult contains the outcome of an init operation.
type InitResult struct {
	Root      string
	VaultName string
	VaultUUID string
	Device    *RegisterResult
}

// Init creates a vault in the scope's vault directory (or the working
// directory) and registers this machine as its first device.
//
// Returns ErrVaultAlreadyInitialized if the directory already holds a vault.
func Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := opts.settings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	root := firstNonEmpty(opts.VaultDir, settings.VaultDir)
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolving vault directory: %w", err)
	}

	if configs.IsVault(root) {
		return nil, kerrors.ErrVaultAlreadyInitialized
	}

	vault := configs.Vault{Root: root}
	if err := os.MkdirAll(vault.Dir(), 0700); err != nil {
		return nil, fmt.Errorf("creating %s: %w", vault.Dir(), err)
	}

	name := firstNonEmpty(opts.Name, filepath.Base(root))
	vaultConfig := &configs.VaultConfig{
		Vault: configs.VaultInfo{
			UUID:      configs.GenerateVaultUUID(),
			Name:      name,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
	}
	if err := configs.SaveVaultConfig(vault, vaultConfig); err != nil {
		return nil, err
	}
	if err := snapshot.Save(vault.StatePath(), backend.State{}); err != nil {
		return nil, err
	}

	device, err := Register(ctx, RegisterOptions{
		Scope: Scope{Settings: settings, VaultDir: root, Device: opts.Device},
		Alias: opts.Alias,
	})
	if err != nil {
		return nil, fmt.Errorf("registering first device: %w", err)
	}

	userConfig, err := configs.LoadUserConfig(settings)
	if err == nil {
		audit.Log(vault.AuditPath(), audit.Entry{
			Identity:  userConfig.User.Identity,
			Device:    device.Alias,
			Operation: "init",
			VaultName: name,
		})
	}

	return &InitResult{
		Root:      root,
		VaultName: name,
		VaultUUID: vaultConfig.Vault.UUID,
		Device:    device,
	}, nil
}
