// Package devicekeys provides the client-side cryptography of Kōwhai.
//
// None of this runs inside the registry. The registry only ever sees the
// strings produced here: an encoded public key and a wrapped symmetric key.
//
// # Encryption Architecture
//
// Kōwhai uses a hybrid encryption scheme:
//
//  1. A random 256-bit symmetric key encrypts every note of an identity
//  2. Each device's RSA public key encrypts (wraps) a copy of the symmetric key
//  3. A device unwraps its copy with its private key, then decrypts notes
//
// The first device of an identity generates the symmetric key. Later
// devices register their public key and wait until an already synchronized
// device wraps the key for them.
//
// # Key Management
//
// RSA key pairs are generated per device and per vault:
//   - Private key: <data>/keys/<vault-uuid>/<alias>/privkey (0600)
//   - Public key:  <data>/keys/<vault-uuid>/<alias>/pubkey.pub
//
// The registry identifies a device by its public key encoded as base64
// SubjectPublicKeyInfo DER. Wrapping uses RSA-OAEP with SHA-256.
//
// # Note Encryption
//
// Notes are sealed with NaCl secretbox. A random 24-byte nonce is prepended
// to the ciphertext and the result is base64 encoded, so the same note
// encrypts differently every time.
package devicekeys
