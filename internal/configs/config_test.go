package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	root := t.TempDir()
	return &Settings{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
		KeyBits:   2048,
	}
}

func TestLoadSettingsFromEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("KOWHAI_CONFIG_DIR", filepath.Join(root, "cfg"))
	t.Setenv("KOWHAI_DATA_DIR", filepath.Join(root, "data"))
	t.Setenv("KOWHAI_VAULT", filepath.Join(root, "vault"))
	t.Setenv("KOWHAI_DEVICE", "laptop")
	t.Setenv("KOWHAI_KEY_BITS", "2048")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	want := &Settings{
		ConfigDir: filepath.Join(root, "cfg"),
		DataDir:   filepath.Join(root, "data"),
		VaultDir:  filepath.Join(root, "vault"),
		Device:    "laptop",
		KeyBits:   2048,
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	root := t.TempDir()
	for _, key := range []string{"KOWHAI_CONFIG_DIR", "KOWHAI_DATA_DIR", "KOWHAI_KEY_BITS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "share"))

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}

	if settings.DataDir != filepath.Join(root, "share", "kowhai") {
		t.Errorf("Expected data dir under XDG_DATA_HOME, got %q", settings.DataDir)
	}
	if filepath.Base(settings.ConfigDir) != "kowhai" {
		t.Errorf("Expected config dir to end in kowhai, got %q", settings.ConfigDir)
	}
	if settings.KeyBits != 4096 {
		t.Errorf("Expected default key bits 4096, got %d", settings.KeyBits)
	}
}

func TestDeviceKeyPaths(t *testing.T) {
	settings := &Settings{DataDir: "/data"}
	priv, pub := settings.DeviceKeyPaths("vault-1", "laptop")

	if priv != filepath.Join("/data", "keys", "vault-1", "laptop", "privkey") {
		t.Errorf("unexpected private key path %q", priv)
	}
	if pub != filepath.Join("/data", "keys", "vault-1", "laptop", "pubkey.pub") {
		t.Errorf("unexpected public key path %q", pub)
	}
}

func TestEnsureUserConfigGeneratesIdentityOnce(t *testing.T) {
	settings := newTestSettings(t)

	first, err := EnsureUserConfig(settings)
	if err != nil {
		t.Fatalf("EnsureUserConfig failed: %v", err)
	}
	if first.User.Identity == "" {
		t.Fatal("Expected an identity to be generated")
	}

	second, err := EnsureUserConfig(settings)
	if err != nil {
		t.Fatalf("EnsureUserConfig failed: %v", err)
	}
	if second.User.Identity != first.User.Identity {
		t.Errorf("Expected identity %q to persist, got %q", first.User.Identity, second.User.Identity)
	}
}

func TestLoadUserConfigMissingFile(t *testing.T) {
	settings := newTestSettings(t)

	config, err := LoadUserConfig(settings)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if config.User.Identity != "" {
		t.Errorf("Expected empty identity, got %q", config.User.Identity)
	}
	if config.Vaults == nil {
		t.Error("Expected vaults map to be initialized")
	}
}

func TestUserConfigRoundTrip(t *testing.T) {
	settings := newTestSettings(t)

	config := &UserConfig{
		User: User{
			Identity:      GenerateIdentity(),
			Email:         "ana@example.com",
			DefaultDevice: "desktop",
		},
		Vaults: map[string]string{"vault-1": "laptop"},
	}
	if err := SaveUserConfig(settings, config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}

	loaded, err := LoadUserConfig(settings)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if diff := cmp.Diff(config, loaded); diff != "" {
		t.Errorf("user config mismatch (-want +got):\n%s", diff)
	}
}

func TestVaultConfigRoundTrip(t *testing.T) {
	vault := Vault{Root: t.TempDir()}

	config := &VaultConfig{
		Vault: VaultInfo{
			UUID:      GenerateVaultUUID(),
			Name:      "notes",
			CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	if err := SaveVaultConfig(vault, config); err != nil {
		t.Fatalf("SaveVaultConfig failed: %v", err)
	}

	loaded, err := LoadVaultConfig(vault)
	if err != nil {
		t.Fatalf("LoadVaultConfig failed: %v", err)
	}
	if loaded.Vault.UUID != config.Vault.UUID || loaded.Vault.Name != "notes" {
		t.Errorf("unexpected vault config %+v", loaded.Vault)
	}
	if !loaded.Vault.CreatedAt.Equal(config.Vault.CreatedAt) {
		t.Errorf("Expected created_at %v, got %v", config.Vault.CreatedAt, loaded.Vault.CreatedAt)
	}
}

func TestFindVaultRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, DirName), 0700); err != nil {
		t.Fatalf("failed to create vault dir: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}

	found, err := FindVaultRoot(nested)
	if err != nil {
		t.Fatalf("FindVaultRoot failed: %v", err)
	}
	if found != root {
		t.Errorf("Expected %q, got %q", root, found)
	}
}

func TestFindVaultRootNone(t *testing.T) {
	found, err := FindVaultRoot(t.TempDir())
	if err != nil {
		t.Fatalf("FindVaultRoot failed: %v", err)
	}
	if found != "" && !IsVault(found) {
		t.Errorf("Expected no vault, got %q", found)
	}
}

func TestResolveVaultOverride(t *testing.T) {
	root := t.TempDir()
	settings := &Settings{VaultDir: root}

	found, err := settings.ResolveVault()
	if err != nil {
		t.Fatalf("ResolveVault failed: %v", err)
	}
	if found != "" {
		t.Errorf("Expected no vault before init, got %q", found)
	}

	if err := os.MkdirAll(filepath.Join(root, DirName), 0700); err != nil {
		t.Fatalf("failed to create vault dir: %v", err)
	}
	found, err = settings.ResolveVault()
	if err != nil {
		t.Fatalf("ResolveVault failed: %v", err)
	}
	if found != root {
		t.Errorf("Expected %q, got %q", root, found)
	}
}
