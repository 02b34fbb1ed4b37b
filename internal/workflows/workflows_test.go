package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PolarWolf314/kowhai/internal/configs"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
)

// machine is one computer sharing the test vault.
type machine struct {
	scope Scope
}

func newMachine(t *testing.T, vaultDir string) machine {
	t.Helper()
	root := t.TempDir()
	return machine{scope: Scope{
		Settings: &configs.Settings{
			ConfigDir: filepath.Join(root, "config"),
			DataDir:   filepath.Join(root, "data"),
			KeyBits:   2048,
		},
		VaultDir: vaultDir,
	}}
}

// sameUser gives m the identity of other, as "kowhai config init --identity" does.
func (m machine) sameUser(t *testing.T, other machine) machine {
	t.Helper()
	otherConfig, err := configs.LoadUserConfig(other.scope.Settings)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	config := &configs.UserConfig{
		User:   configs.User{Identity: otherConfig.User.Identity},
		Vaults: map[string]string{},
	}
	if err := configs.SaveUserConfig(m.scope.Settings, config); err != nil {
		t.Fatalf("SaveUserConfig failed: %v", err)
	}
	return m
}

func initVault(t *testing.T) (machine, string) {
	t.Helper()
	vaultDir := filepath.Join(t.TempDir(), "vault")
	laptop := newMachine(t, vaultDir)

	result, err := Init(context.Background(), InitOptions{Scope: laptop.scope, Name: "journal", Alias: "laptop"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if result.Device.KeyState != KeyOriginated {
		t.Fatalf("Expected first device to originate the key, got %s", result.Device.KeyState)
	}
	return laptop, vaultDir
}

func addPhone(t *testing.T, laptop machine, vaultDir string) machine {
	t.Helper()
	phone := newMachine(t, vaultDir).sameUser(t, laptop)

	result, err := Register(context.Background(), RegisterOptions{Scope: phone.scope, Alias: "phone"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if result.KeyState != KeyPending {
		t.Fatalf("Expected second device to be pending, got %s", result.KeyState)
	}
	return phone
}

func expectErr(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("Expected %v, got %v", want, err)
	}
}

func TestInitCreatesVault(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)

	vault := configs.Vault{Root: vaultDir}
	for _, path := range []string{vault.ConfigPath(), vault.StatePath(), vault.AuditPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}

	_, err := Init(ctx, InitOptions{Scope: laptop.scope})
	expectErr(t, err, kerrors.ErrVaultAlreadyInitialized)

	status, err := Status(ctx, StatusOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	want := &StatusResult{
		VaultName:       "journal",
		Identity:        status.Identity,
		Device:          "laptop",
		Registered:      true,
		Devices:         []string{"laptop"},
		HasSymmetricKey: true,
		Synced:          true,
	}
	if diff := cmp.Diff(want, status); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
	if status.Identity == "" {
		t.Error("Expected an identity to be generated")
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	laptop, _ := initVault(t)

	result, err := Register(context.Background(), RegisterOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !result.AlreadyRegistered || result.KeyCreated || result.KeyState != KeySynced {
		t.Errorf("unexpected re-register result %+v", result)
	}
}

func TestRegisterRejectsBadAliases(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)
	other := newMachine(t, vaultDir).sameUser(t, laptop)

	_, err := Register(ctx, RegisterOptions{Scope: other.scope, Alias: "../laptop"})
	expectErr(t, err, kerrors.ErrInvalidDeviceName)

	_, err = Register(ctx, RegisterOptions{Scope: other.scope, Alias: "laptop"})
	expectErr(t, err, kerrors.ErrDeviceAliasTaken)
}

func TestSecondDeviceSync(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)
	phone := addPhone(t, laptop, vaultDir)

	_, err := AddNote(ctx, AddNoteOptions{Scope: phone.scope, Text: "from phone"})
	expectErr(t, err, kerrors.ErrNoSymmetricKey)

	_, err = Sync(ctx, SyncOptions{Scope: phone.scope})
	expectErr(t, err, kerrors.ErrNoSymmetricKey)

	if _, err := AddNote(ctx, AddNoteOptions{Scope: laptop.scope, Text: "kia ora"}); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}

	devices, err := ListDevices(ctx, ListDevicesOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices.Devices) != 2 || devices.Devices[1].Alias != "phone" || devices.Devices[1].Synced {
		t.Fatalf("Expected phone to be listed as unsynced, got %+v", devices.Devices)
	}
	if !devices.Devices[0].Current || !devices.Devices[0].Synced {
		t.Errorf("Expected laptop to be current and synced, got %+v", devices.Devices[0])
	}

	dry, err := Sync(ctx, SyncOptions{Scope: laptop.scope, DryRun: true})
	if err != nil {
		t.Fatalf("Sync dry run failed: %v", err)
	}
	if len(dry.Synced) != 1 || !dry.DryRun {
		t.Fatalf("Expected one device in dry run, got %+v", dry)
	}

	synced, err := Sync(ctx, SyncOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(synced.Synced) != 1 || synced.Synced[0] != devices.Devices[1].Fingerprint {
		t.Fatalf("Expected phone to be synced, got %+v", synced)
	}

	again, err := Sync(ctx, SyncOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("Second sync failed: %v", err)
	}
	if len(again.Synced) != 0 {
		t.Errorf("Expected nothing left to sync, got %+v", again.Synced)
	}

	status, err := Status(ctx, StatusOptions{Scope: phone.scope})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Synced || status.UnsyncedCount != 0 || status.Device != "phone" {
		t.Errorf("Expected phone to be synced, got %+v", status)
	}

	list, err := ListNotes(ctx, ListNotesOptions{Scope: phone.scope})
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(list.Notes) != 1 || list.Notes[0].Text != "kia ora" {
		t.Errorf("Expected phone to read the laptop's note, got %+v", list.Notes)
	}
}

func TestRemoveDevice(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)
	phone := addPhone(t, laptop, vaultDir)

	_, err := RemoveDevice(ctx, RemoveDeviceOptions{Scope: laptop.scope, Alias: "tablet"})
	expectErr(t, err, kerrors.ErrUnknownDevice)

	removed, err := RemoveDevice(ctx, RemoveDeviceOptions{Scope: laptop.scope, Alias: "phone"})
	if err != nil {
		t.Fatalf("RemoveDevice failed: %v", err)
	}
	if removed.RemovedSelf {
		t.Error("Expected phone removal not to count as removing the laptop")
	}

	status, err := Status(ctx, StatusOptions{Scope: phone.scope})
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.DeviceRemoved {
		t.Errorf("Expected phone to see its device removed, got %+v", status)
	}

	_, err = RemoveDevice(ctx, RemoveDeviceOptions{Scope: laptop.scope, Alias: "laptop", AllowSelf: true})
	expectErr(t, err, kerrors.ErrCallAborted)
	expectErr(t, err, kerrors.ErrLastDevice)

	devices, err := ListDevices(ctx, ListDevicesOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices.Devices) != 1 || devices.Devices[0].Alias != "laptop" || !devices.Devices[0].Synced {
		t.Errorf("Expected the aborted removal to change nothing, got %+v", devices.Devices)
	}
}

func TestRemoveOwnDeviceDeletesLocalKeys(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)
	phone := addPhone(t, laptop, vaultDir)

	_, err := RemoveDevice(ctx, RemoveDeviceOptions{Scope: phone.scope, Alias: "phone"})
	expectErr(t, err, kerrors.ErrRemovingSelf)

	result, err := RemoveDevice(ctx, RemoveDeviceOptions{Scope: phone.scope, Alias: "phone", AllowSelf: true})
	if err != nil {
		t.Fatalf("RemoveDevice failed: %v", err)
	}
	if !result.RemovedSelf {
		t.Fatal("Expected phone to remove itself")
	}

	vaultConfig, err := configs.LoadVaultConfig(configs.Vault{Root: vaultDir})
	if err != nil {
		t.Fatalf("LoadVaultConfig failed: %v", err)
	}
	privatePath, _ := phone.scope.Settings.DeviceKeyPaths(vaultConfig.Vault.UUID, "phone")
	if _, err := os.Stat(privatePath); !os.IsNotExist(err) {
		t.Errorf("Expected phone key to be deleted, stat returned %v", err)
	}

	userConfig, err := configs.LoadUserConfig(phone.scope.Settings)
	if err != nil {
		t.Fatalf("LoadUserConfig failed: %v", err)
	}
	if _, ok := userConfig.Vaults[vaultConfig.Vault.UUID]; ok {
		t.Error("Expected vault mapping to be dropped")
	}
}

func TestNotesLifecycle(t *testing.T) {
	ctx := context.Background()
	laptop, _ := initVault(t)

	first, err := AddNote(ctx, AddNoteOptions{Scope: laptop.scope, Text: "first"})
	if err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	second, err := AddNote(ctx, AddNoteOptions{Scope: laptop.scope, Text: "second"})
	if err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("Expected unique note ids, got %d twice", first.ID)
	}

	if _, err := EditNote(ctx, EditNoteOptions{Scope: laptop.scope, ID: first.ID, Text: "first, edited"}); err != nil {
		t.Fatalf("EditNote failed: %v", err)
	}
	if _, err := RemoveNote(ctx, RemoveNoteOptions{Scope: laptop.scope, ID: second.ID}); err != nil {
		t.Fatalf("RemoveNote failed: %v", err)
	}

	_, err = EditNote(ctx, EditNoteOptions{Scope: laptop.scope, ID: second.ID, Text: "gone"})
	expectErr(t, err, kerrors.ErrNoteNotFound)
	_, err = RemoveNote(ctx, RemoveNoteOptions{Scope: laptop.scope, ID: 999})
	expectErr(t, err, kerrors.ErrNoteNotFound)

	list, err := ListNotes(ctx, ListNotesOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	want := []PlainNote{{ID: first.ID, Text: "first, edited"}}
	if diff := cmp.Diff(want, list.Notes); diff != "" {
		t.Errorf("notes mismatch (-want +got):\n%s", diff)
	}
}

func TestImportNotes(t *testing.T) {
	ctx := context.Background()
	laptop, _ := initVault(t)

	base := t.TempDir()
	files := map[string]string{
		"a.md":              "alpha",
		"sub/b.md":          "beta",
		"sub/skip.txt":      "not markdown",
		".kowhai/hidden.md": "inside a vault",
	}
	for name, content := range files {
		path := filepath.Join(base, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	dry, err := ImportNotes(ctx, ImportNotesOptions{Scope: laptop.scope, Patterns: []string{"**/*.md"}, BaseDir: base, DryRun: true})
	if err != nil {
		t.Fatalf("ImportNotes dry run failed: %v", err)
	}
	wantFiles := []string{filepath.Join(base, "a.md"), filepath.Join(base, "sub", "b.md")}
	if diff := cmp.Diff(wantFiles, dry.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if len(dry.IDs) != 0 {
		t.Errorf("Expected dry run to store nothing, got %v", dry.IDs)
	}

	imported, err := ImportNotes(ctx, ImportNotesOptions{Scope: laptop.scope, Patterns: []string{"**/*.md", "a.md"}, BaseDir: base})
	if err != nil {
		t.Fatalf("ImportNotes failed: %v", err)
	}
	if len(imported.IDs) != 2 {
		t.Fatalf("Expected 2 notes, got %v", imported.IDs)
	}

	list, err := ListNotes(ctx, ListNotesOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("ListNotes failed: %v", err)
	}
	if len(list.Notes) != 2 || list.Notes[0].Text != "alpha" || list.Notes[1].Text != "beta" {
		t.Errorf("unexpected imported notes %+v", list.Notes)
	}

	_, err = ImportNotes(ctx, ImportNotesOptions{Scope: laptop.scope, Patterns: []string{"*.org"}, BaseDir: base})
	expectErr(t, err, kerrors.ErrNoFilesFound)
}

func TestLogFilters(t *testing.T) {
	ctx := context.Background()
	laptop, vaultDir := initVault(t)
	addPhone(t, laptop, vaultDir)

	if _, err := AddNote(ctx, AddNoteOptions{Scope: laptop.scope, Text: "x"}); err != nil {
		t.Fatalf("AddNote failed: %v", err)
	}
	if _, err := Sync(ctx, SyncOptions{Scope: laptop.scope}); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	all, err := Log(ctx, LogOptions{Scope: laptop.scope})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	var ops []string
	for _, e := range all.Entries {
		ops = append(ops, e.Operation)
	}
	wantOps := []string{"register", "init", "register", "note-add", "sync"}
	if diff := cmp.Diff(wantOps, ops); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}

	byDevice, err := Log(ctx, LogOptions{Scope: laptop.scope, Device: "phone"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(byDevice.Entries) != 1 || byDevice.Entries[0].TargetDevice != "phone" {
		t.Errorf("Expected only the phone registration, got %+v", byDevice.Entries)
	}

	latest, err := Log(ctx, LogOptions{Scope: laptop.scope, Limit: 1, Reverse: true})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(latest.Entries) != 1 || latest.Entries[0].Operation != "sync" || latest.Total != 5 {
		t.Errorf("Expected the latest sync entry, got %+v", latest)
	}

	_, err = Log(ctx, LogOptions{Scope: laptop.scope, Since: "yesterday"})
	expectErr(t, err, kerrors.ErrInvalidDateFormat)

	recent, err := Log(ctx, LogOptions{Scope: laptop.scope, Since: "2000-01-01", Operations: "sync, note-add"})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(recent.Entries) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(recent.Entries))
	}
}

func TestWorkflowsOutsideVault(t *testing.T) {
	m := newMachine(t, t.TempDir())

	_, err := Status(context.Background(), StatusOptions{Scope: m.scope})
	expectErr(t, err, kerrors.ErrVaultNotInitialized)

	_, err = Log(context.Background(), LogOptions{Scope: m.scope})
	expectErr(t, err, kerrors.ErrVaultNotInitialized)
}

func TestCancelledContext(t *testing.T) {
	laptop, _ := initVault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Status(ctx, StatusOptions{Scope: laptop.scope})
	expectErr(t, err, context.Canceled)
}
