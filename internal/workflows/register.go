package workflows

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/configs"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/utils"
)

// KeyState describes where this device stands with the vault's symmetric key.
type KeyState string

const (
	// KeyOriginated means this device created the identity's symmetric key.
	KeyOriginated KeyState = "originated"

	// KeySynced means the symmetric key is available to this device.
	KeySynced KeyState = "synced"

	// KeyPending means another device must run sync before this one can read notes.
	KeyPending KeyState = "pending"
)

// RegisterOptions configures the register workflow.
type RegisterOptions struct {
	Scope

	// Alias names the device. Defaults to the configured device, then the
	// user's default device, then a name derived from the hostname.
	Alias string
}

// RegisterResult contains the outcome of a register operation.
type RegisterResult struct {
	Alias       string
	Fingerprint string
	KeyState    KeyState

	// KeyCreated is true when a new device key pair was written to disk.
	KeyCreated bool

	// AlreadyRegistered is true when the alias was already bound to this key.
	AlreadyRegistered bool
}

// Register binds this machine's device key to the caller's identity and
// makes sure the identity has a symmetric key.
//
// The first device of an identity creates the symmetric key and registers
// it encrypted for itself. Later devices are registered unsynced until an
// existing device runs Sync.
//
// Returns ErrInvalidDeviceName for aliases outside [a-zA-Z0-9_-].
// Returns ErrDeviceAliasTaken if the alias is bound to a different key.
func Register(ctx context.Context, opts RegisterOptions) (*RegisterResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	existing, err := sess.service.DeviceAliases(sess.caller)
	if err != nil && !errors.Is(err, kerrors.ErrCallerNotRegistered) {
		return nil, err
	}

	alias := firstNonEmpty(opts.Alias, sess.device, sess.user.User.DefaultDevice)
	if alias == "" {
		alias = utils.GenerateDeviceName(existing)
	}
	if !utils.IsValidDeviceName(alias) {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrInvalidDeviceName, alias)
	}
	sess.device = alias

	privateKey, keyCreated, err := ensureDeviceKey(sess, alias)
	if err != nil {
		return nil, err
	}
	publicKey, err := devicekeys.EncodePublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	result := &RegisterResult{
		Alias:       alias,
		Fingerprint: devicekeys.Fingerprint(publicKey),
		KeyCreated:  keyCreated,
	}

	if slices.Contains(existing, alias) {
		bound, _, err := sess.service.DevicePublicKey(sess.caller, alias)
		if err != nil {
			return nil, err
		}
		if bound != publicKey {
			return nil, fmt.Errorf("%w: %s", kerrors.ErrDeviceAliasTaken, alias)
		}
		result.AlreadyRegistered = true
	} else if err := sess.persist(sess.service.RegisterDevice(sess.caller, alias, publicKey)); err != nil {
		return nil, err
	}

	result.KeyState, err = bootstrapSymmetricKey(sess, privateKey, publicKey)
	if err != nil {
		return nil, err
	}

	sess.user.Vaults[sess.config.Vault.UUID] = alias
	if err := configs.SaveUserConfig(sess.settings, sess.user); err != nil {
		return nil, err
	}

	if !result.AlreadyRegistered {
		sess.audit(audit.Entry{Operation: "register", TargetDevice: alias})
	}

	return result, nil
}

// bootstrapSymmetricKey originates the identity's symmetric key if there is
// none, and otherwise reports whether this device can read it.
func bootstrapSymmetricKey(sess *session, privateKey *rsa.PrivateKey, publicKey string) (KeyState, error) {
	has, err := sess.service.IsEncryptedSymmetricKeyRegistered(sess.caller)
	if err != nil {
		return "", err
	}

	if !has {
		symKey, err := devicekeys.CreateSymmetricKey()
		if err != nil {
			return "", fmt.Errorf("creating symmetric key: %w", err)
		}
		defer devicekeys.Zero(symKey)

		wrapped, err := devicekeys.WrapSymmetricKey(symKey, &privateKey.PublicKey)
		if err != nil {
			return "", err
		}
		if err := sess.persist(sess.service.RegisterEncryptedSymmetricKey(sess.caller, publicKey, wrapped)); err != nil {
			return "", err
		}
		return KeyOriginated, nil
	}

	wrapped, err := sess.service.EncryptedSymmetricKey(sess.caller, publicKey)
	switch {
	case errors.Is(err, kerrors.ErrKeyNotSynchronized):
		return KeyPending, nil
	case err != nil:
		return "", err
	}

	symKey, err := devicekeys.UnwrapSymmetricKey(wrapped, privateKey)
	if err != nil {
		return "", err
	}
	devicekeys.Zero(symKey)
	return KeySynced, nil
}

// ensureDeviceKey loads the device key pair for alias, generating it on
// first use.
func ensureDeviceKey(sess *session, alias string) (*rsa.PrivateKey, bool, error) {
	privatePath, publicPath := sess.keyPaths(alias)

	if fileExists(privatePath) {
		privateKey, err := devicekeys.LoadPrivateKey(privatePath)
		if err != nil {
			return nil, false, err
		}
		return privateKey, false, nil
	}

	privateKey, err := devicekeys.GenerateKeyPair(sess.settings.KeyBits)
	if err != nil {
		return nil, false, err
	}
	if err := devicekeys.SaveKeyPair(privateKey, privatePath, publicPath); err != nil {
		return nil, false, err
	}
	return privateKey, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
