package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	"github.com/PolarWolf314/kowhai/internal/registry"
)

// SyncOptions configures the sync workflow.
type SyncOptions struct {
	Scope

	// DryRun reports the unsynced devices without uploading keys.
	DryRun bool
}

// SyncResult contains the outcome of a sync operation.
type SyncResult struct {
	// Synced holds the fingerprints of the public keys that received the key.
	Synced []string

	// Skipped holds the fingerprints of public keys that could not be parsed.
	Skipped []string

	DryRun bool
}

// Sync encrypts the identity's symmetric key for every device that does
// not have it yet. It must run on a device that is already synced.
//
// Returns ErrNoSymmetricKey if this device cannot read the symmetric key.
func Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	symKey, err := sess.symmetricKey()
	if err != nil {
		return nil, err
	}
	defer devicekeys.Zero(symKey)

	unsynced, err := sess.service.UnsyncedPublicKeys(sess.caller)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{DryRun: opts.DryRun}
	var pairs []registry.KeyPair
	for _, publicKey := range unsynced {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rsaKey, err := devicekeys.DecodePublicKey(publicKey)
		if err != nil {
			result.Skipped = append(result.Skipped, devicekeys.Fingerprint(publicKey))
			continue
		}
		wrapped, err := devicekeys.WrapSymmetricKey(symKey, rsaKey)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, registry.KeyPair{PublicKey: publicKey, EncryptedKey: wrapped})
		result.Synced = append(result.Synced, devicekeys.Fingerprint(publicKey))
	}

	if opts.DryRun || len(pairs) == 0 {
		return result, nil
	}

	if err := sess.persist(sess.service.UploadEncryptedSymmetricKeys(sess.caller, pairs)); err != nil {
		return nil, fmt.Errorf("uploading keys: %w", err)
	}

	sess.audit(audit.Entry{Operation: "sync", KeysCount: len(pairs)})

	return result, nil
}
