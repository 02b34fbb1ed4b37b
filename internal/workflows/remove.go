package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/configs"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
)

// RemoveDeviceOptions configures the remove device workflow.
type RemoveDeviceOptions struct {
	Scope

	// Alias is the device to remove.
	Alias string

	// AllowSelf permits removing this machine's own device.
	AllowSelf bool
}

// RemoveDeviceResult contains the outcome of a remove device operation.
type RemoveDeviceResult struct {
	Alias string

	// RemovedSelf is true when this machine's own device was removed. Its
	// local key pair is deleted with it.
	RemovedSelf bool
}

// RemoveDevice unregisters one of the caller's devices and drops the
// symmetric key stored for it.
//
// Returns ErrUnknownDevice if the caller has no device named Alias.
// Returns ErrRemovingSelf if Alias is this machine's device and AllowSelf is unset.
// Returns an error wrapping ErrCallAborted and ErrLastDevice when Alias is
// the caller's only device; nothing is changed in that case.
func RemoveDevice(ctx context.Context, opts RemoveDeviceOptions) (*RemoveDeviceResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	aliases, err := sess.service.DeviceAliases(sess.caller)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(aliases, opts.Alias) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnknownDevice, opts.Alias)
	}

	if opts.Alias == sess.device && !opts.AllowSelf {
		return nil, kerrors.ErrRemovingSelf
	}

	if err := sess.persist(sess.service.DeleteDevice(sess.caller, opts.Alias)); err != nil {
		sess.audit(audit.Entry{Operation: "remove", TargetDevice: opts.Alias, Aborted: true})
		return nil, err
	}

	result := &RemoveDeviceResult{Alias: opts.Alias, RemovedSelf: opts.Alias == sess.device}

	if result.RemovedSelf {
		delete(sess.user.Vaults, sess.config.Vault.UUID)
		if err := configs.SaveUserConfig(sess.settings, sess.user); err != nil {
			return nil, err
		}
		privatePath, _ := sess.keyPaths(opts.Alias)
		if err := os.RemoveAll(filepath.Dir(privatePath)); err != nil {
			return nil, fmt.Errorf("removing device keys: %w", err)
		}
	}

	sess.audit(audit.Entry{Operation: "remove", TargetDevice: opts.Alias})

	return result, nil
}
