package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/PolarWolf314/kowhai/internal/backend"
	"github.com/PolarWolf314/kowhai/internal/configs"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/identity"
	"github.com/PolarWolf314/kowhai/internal/snapshot"

	"github.com/google/uuid"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	Scope
}

// checkup carries what earlier checks found to the later ones. A nil field
// means the check that fills it failed.
type checkup struct {
	scope    Scope
	settings *configs.Settings

	vault       configs.Vault
	vaultConfig *configs.VaultConfig
	userConfig  *configs.UserConfig
	service     *backend.Service

	device      string
	privatePath string
	publicKey   string
	registered  bool
}

// Doctor runs health checks on the vault and this device. It never changes
// the vault or the user configuration.
//
// The doctor workflow checks:
//   - Vault configuration validity
//   - User configuration and identity
//   - Vault state readability
//   - Device key existence and permissions
//   - Device registration
//   - Symmetric key synchronization
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := opts.Scope.settings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	c := &checkup{scope: opts.Scope, settings: settings}
	checks := []func(*checkup) CheckResult{
		checkVaultConfig,
		checkUserConfig,
		checkVaultState,
		checkDeviceKey,
		checkDeviceKeyPermissions,
		checkDeviceRegistration,
		checkKeySync,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check(c))
	}

	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     calculateDoctorSummary(results),
		Suggestions: suggestions,
	}, nil
}

func checkVaultConfig(c *checkup) CheckResult {
	const name = "Vault configuration"

	root, err := resolveVault(c.scope, c.settings)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "Kōwhai vault not found",
			Suggestion: "Run 'kowhai init' to create a vault",
		}
	}
	vault := configs.Vault{Root: root}

	config, err := configs.LoadVaultConfig(vault)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Vault config.toml is invalid: %v", err),
			Suggestion: "Check the .kowhai/config.toml file for syntax errors",
		}
	}
	if config.Vault.UUID == "" {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "Vault config is missing vault_uuid",
			Suggestion: "Re-create the vault with 'kowhai init'",
		}
	}

	c.vault = vault
	c.vaultConfig = config
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Vault %q found at %s", config.Vault.Name, root),
	}
}

func checkUserConfig(c *checkup) CheckResult {
	const name = "User configuration"

	config, err := configs.LoadUserConfig(c.settings)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("User config is invalid: %v", err),
			Suggestion: fmt.Sprintf("Check %s for syntax errors", c.settings.UserConfigPath()),
		}
	}
	if config.User.Identity == "" {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "No identity configured",
			Suggestion: "Run 'kowhai config init' to create an identity",
		}
	}
	if _, err := uuid.Parse(config.User.Identity); err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Identity %q is not a valid UUID", config.User.Identity),
			Suggestion: "Run 'kowhai config init --identity <uuid>' with the identity from another device",
		}
	}

	c.userConfig = config
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Identity %s configured", config.User.Identity),
	}
}

func checkVaultState(c *checkup) CheckResult {
	const name = "Vault state"

	if c.vaultConfig == nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: "Cannot read vault state: vault not found",
		}
	}

	state, err := snapshot.Load(c.vault.StatePath())
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Vault state is unreadable: %v", err),
			Suggestion: "Restore .kowhai/state.toml from version control or a backup",
		}
	}

	c.service = backend.Restore(state)
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Vault state holds %d identities", len(state.Registry)),
	}
}

func checkDeviceKey(c *checkup) CheckResult {
	const name = "Device key"

	if c.vaultConfig == nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: "Cannot check device key: vault not found",
		}
	}

	c.device = firstNonEmpty(c.scope.Device, c.settings.Device)
	if c.device == "" && c.userConfig != nil {
		c.device = c.userConfig.Vaults[c.vaultConfig.Vault.UUID]
	}
	if c.device == "" {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "This machine has no device in the vault",
			Suggestion: "Run 'kowhai devices register' to register this device",
		}
	}

	privatePath, _ := c.settings.DeviceKeyPaths(c.vaultConfig.Vault.UUID, c.device)
	c.privatePath = privatePath

	privateKey, err := devicekeys.LoadPrivateKey(privatePath)
	if errors.Is(err, kerrors.ErrDeviceKeyNotFound) {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Private key for device %q not found", c.device),
			Suggestion: "Run 'kowhai devices register' to register this device",
		}
	}
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Private key for device %q is unreadable: %v", c.device, err),
			Suggestion: "Remove the device and register it again",
		}
	}

	publicKey, err := devicekeys.EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to encode public key: %v", err),
		}
	}

	c.publicKey = publicKey
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Device %q key found (%s)", c.device, devicekeys.Fingerprint(publicKey)),
	}
}

func checkDeviceKeyPermissions(c *checkup) CheckResult {
	const name = "Device key permissions"

	if c.publicKey == "" {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: "Private key not found (skipping permissions check)",
		}
	}

	if runtime.GOOS == "windows" {
		return CheckResult{
			Name:    name,
			Status:  CheckPass,
			Message: "Permissions are not checked on Windows",
		}
	}

	info, err := os.Stat(c.privatePath)
	if err != nil {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Failed to stat private key: %v", err),
			Suggestion: "Check that the private key file is accessible",
		}
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Private key has insecure permissions (%04o)", mode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s' to fix permissions", c.privatePath),
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "Private key has correct permissions (0600)",
	}
}

func checkDeviceRegistration(c *checkup) CheckResult {
	const name = "Device registration"

	if c.service == nil || c.userConfig == nil || c.publicKey == "" {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: "Cannot check registration: earlier checks failed",
		}
	}

	caller := identity.Identity(c.userConfig.User.Identity)
	bound, ok, err := c.service.DevicePublicKey(caller, c.device)
	if errors.Is(err, kerrors.ErrCallerNotRegistered) {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "Identity has no devices in this vault",
			Suggestion: "Run 'kowhai devices register' to register this device",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to look up device: %v", err),
		}
	}
	if !ok || bound != c.publicKey {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    fmt.Sprintf("Device %q was removed from the vault", c.device),
			Suggestion: "Run 'kowhai devices register' to register this device again",
		}
	}

	c.registered = true
	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: fmt.Sprintf("Device %q is registered", c.device),
	}
}

func checkKeySync(c *checkup) CheckResult {
	const name = "Key synchronization"

	if !c.registered {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: "Cannot check key sync: device not registered",
		}
	}

	caller := identity.Identity(c.userConfig.User.Identity)
	has, err := c.service.IsEncryptedSymmetricKeyRegistered(caller)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to check symmetric key: %v", err),
		}
	}
	if !has {
		return CheckResult{
			Name:       name,
			Status:     CheckError,
			Message:    "No symmetric key is stored for this identity",
			Suggestion: "Run 'kowhai devices register' to create one",
		}
	}

	unsynced, err := c.service.UnsyncedPublicKeys(caller)
	if err != nil {
		return CheckResult{
			Name:    name,
			Status:  CheckError,
			Message: fmt.Sprintf("Failed to list unsynced devices: %v", err),
		}
	}

	if slices.Contains(unsynced, c.publicKey) {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    "This device is waiting for the symmetric key",
			Suggestion: "Run 'kowhai keys sync' on a synced device",
		}
	}
	if len(unsynced) > 0 {
		return CheckResult{
			Name:       name,
			Status:     CheckWarning,
			Message:    fmt.Sprintf("%d device(s) waiting for the symmetric key", len(unsynced)),
			Suggestion: "Run 'kowhai keys sync' to share the key with pending devices",
		}
	}

	return CheckResult{
		Name:    name,
		Status:  CheckPass,
		Message: "All devices hold the symmetric key",
	}
}

// calculateDoctorSummary counts the results by status.
func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
