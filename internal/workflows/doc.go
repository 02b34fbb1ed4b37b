// Package workflows provides high-level orchestration for Kōwhai commands.
//
// Each workflow handles a single command's business logic, independent of
// CLI concerns like flag parsing, spinners and output formatting. The cmd
// package parses flags, calls a workflow and formats its result.
//
// # Sessions
//
// Every workflow that talks to the vault backend follows the same steps:
//
//  1. Resolve settings, the vault root and the user's identity
//  2. Restore a backend.Service from .kowhai/state.toml
//  3. Call the service as the user's identity
//  4. Save the snapshot, unless the call was aborted
//  5. Append an audit entry
//
// Aborted calls (errors wrapping errors.ErrCallAborted) leave the vault
// untouched, so nothing is saved for them. Typed errors such as
// ErrUnknownPublicKey are saved, because a bulk upload keeps the pairs it
// applied before failing.
//
// # Available Workflows
//
//   - Init: creates a vault and registers the first device
//   - Register: registers this machine's device and bootstraps the symmetric key
//   - Sync: shares the symmetric key with unsynced devices
//   - Status, ListDevices, RemoveDevice: device management
//   - AddNote, ListNotes, EditNote, RemoveNote, ImportNotes: encrypted notes
//   - Log: reads the audit trail
//   - Doctor: read-only health checks of the vault and this device
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Use
// errors.Is to check for specific conditions:
//
//	_, err := workflows.RemoveDevice(ctx, opts)
//	if errors.Is(err, kerrors.ErrLastDevice) {
//	    // The device is the identity's only one.
//	}
package workflows
