// Package registry is the device and key synchronization registry.
//
// The registry binds device aliases to public keys under an identity and
// tracks which of those public keys already hold the identity's encrypted
// symmetric key. It stores opaque strings only: it never encrypts, decrypts
// or verifies anything.
//
// # Device Sets
//
// Each identity owns one DeviceSet with two mappings:
//
//   - aliases: device alias -> public key
//   - keys:    public key -> encrypted symmetric key
//
// A key is only ever stored under a public key that is bound to an alias,
// and deleting an alias removes the key stored under its public key, so the
// keys mapping never holds orphans.
//
// # Write Paths
//
// There are two ways a symmetric key enters a DeviceSet:
//
//   - RegisterEncryptedSymmetricKey is the bootstrap path. It succeeds only
//     while no key is stored for the identity, so exactly one device can
//     originate the key.
//   - UploadEncryptedSymmetricKeys is the distribution path. A device that
//     already holds the key pushes copies for other devices and may
//     overwrite existing entries. Pairs are applied in order and a failing
//     pair does not roll back the pairs before it.
//
// # Failures
//
// Key synchronization operations return the sentinel errors of
// internal/errors. RegisterDevice and DeleteDevice never return errors:
// duplicate aliases and unknown entities are silent no-ops. Deleting the last
// alias of an identity panics with a *errors.Violation wrapping
// ErrLastDevice, because it would lock the identity out of its account.
//
// # Concurrency
//
// A Registry is not safe for concurrent use. The backend serializes every
// call behind a single mutex.
package registry
