// Package errors provides typed error values for the Kōwhai application.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching.
//
// # Error Categories
//
// Errors are grouped by how a caller is expected to react to them:
//
//   - Key synchronization errors: recoverable results of registry reads and
//     writes (ErrDeviceNotRegistered, ErrUnknownPublicKey,
//     ErrKeyNotSynchronized, ErrAlreadyRegistered). Callers branch on these.
//   - Violations: broken preconditions (ErrLastDevice, ErrAnonymousCaller,
//     ErrCallerNotRegistered). These are raised with panic(*Violation) and
//     abort the whole call. The backend recovers them at its boundary and
//     returns an error wrapping ErrCallAborted.
//   - Vault errors: client-side state issues (ErrVaultNotInitialized, ...).
//
// # Usage
//
// Return errors from internal packages:
//
//	if _, ok := r.sets[id]; !ok {
//	    return "", errors.ErrDeviceNotRegistered
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.RemoveDevice(ctx, opts)
//	if errors.Is(err, kerrors.ErrLastDevice) {
//	    // Show user-friendly message
//	}
//
// Raise a violation from code that must not continue:
//
//	errors.Violate(errors.ErrLastDevice, "identity %s has a single device", id)
package errors
