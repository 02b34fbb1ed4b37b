package workflows

import (
	"context"
	"errors"
	"slices"

	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
)

// StatusOptions configures the status workflow.
type StatusOptions struct {
	Scope
}

// StatusResult describes the caller's devices and key state in a vault.
type StatusResult struct {
	VaultName string
	Identity  string

	// Device is the alias this machine uses in the vault, if any.
	Device string

	// Registered is true when the identity has at least one device.
	Registered bool

	// DeviceRemoved is true when this machine's alias is no longer bound to
	// its key, typically because another device removed it.
	DeviceRemoved bool

	Devices         []string
	HasSymmetricKey bool

	// Synced is true when this device can read the symmetric key.
	Synced bool

	UnsyncedCount int
}

// Status reports the identity's registration and key synchronization state.
// It never changes the vault.
func Status(ctx context.Context, opts StatusOptions) (*StatusResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		VaultName: sess.config.Vault.Name,
		Identity:  string(sess.caller),
		Device:    sess.device,
	}

	aliases, err := sess.service.DeviceAliases(sess.caller)
	if errors.Is(err, kerrors.ErrCallerNotRegistered) {
		result.DeviceRemoved = sess.device != ""
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	slices.Sort(aliases)
	result.Registered = true
	result.Devices = aliases

	if result.HasSymmetricKey, err = sess.service.IsEncryptedSymmetricKeyRegistered(sess.caller); err != nil {
		return nil, err
	}

	unsynced, err := sess.service.UnsyncedPublicKeys(sess.caller)
	if err != nil {
		return nil, err
	}
	result.UnsyncedCount = len(unsynced)

	if sess.device == "" {
		return result, nil
	}

	_, publicKey, err := sess.deviceKeys()
	if errors.Is(err, kerrors.ErrDeviceKeyNotFound) {
		result.DeviceRemoved = true
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	bound, ok, err := sess.service.DevicePublicKey(sess.caller, sess.device)
	if err != nil {
		return nil, err
	}
	if !ok || bound != publicKey {
		result.DeviceRemoved = true
		return result, nil
	}

	result.Synced = result.HasSymmetricKey && !slices.Contains(unsynced, publicKey)
	return result, nil
}

// DeviceInfo describes one registered device.
type DeviceInfo struct {
	Alias       string
	Fingerprint string
	Synced      bool
	Current     bool
}

// ListDevicesOptions configures the list devices workflow.
type ListDevicesOptions struct {
	Scope
}

// ListDevicesResult contains the caller's devices sorted by alias.
type ListDevicesResult struct {
	Devices []DeviceInfo
}

// ListDevices returns the caller's devices with their sync state.
func ListDevices(ctx context.Context, opts ListDevicesOptions) (*ListDevicesResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	aliases, err := sess.service.DeviceAliases(sess.caller)
	if err != nil {
		return nil, err
	}
	slices.Sort(aliases)

	unsynced, err := sess.service.UnsyncedPublicKeys(sess.caller)
	if err != nil {
		return nil, err
	}

	result := &ListDevicesResult{Devices: make([]DeviceInfo, 0, len(aliases))}
	for _, alias := range aliases {
		publicKey, _, err := sess.service.DevicePublicKey(sess.caller, alias)
		if err != nil {
			return nil, err
		}
		result.Devices = append(result.Devices, DeviceInfo{
			Alias:       alias,
			Fingerprint: devicekeys.Fingerprint(publicKey),
			Synced:      !slices.Contains(unsynced, publicKey),
			Current:     alias == sess.device,
		})
	}

	return result, nil
}
