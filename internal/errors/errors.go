package errors

import (
	"errors"
	"fmt"
)

// Key synchronization errors are returned by registry reads and writes.
var (
	// ErrDeviceNotRegistered indicates the identity has no registered devices.
	ErrDeviceNotRegistered = errors.New("device not registered")

	// ErrUnknownPublicKey indicates the public key is not bound to any device alias of the identity.
	ErrUnknownPublicKey = errors.New("unknown public key")

	// ErrKeyNotSynchronized indicates the public key has not received the encrypted symmetric key yet.
	ErrKeyNotSynchronized = errors.New("symmetric key not synchronized")

	// ErrAlreadyRegistered indicates a symmetric key has already been registered for the identity.
	ErrAlreadyRegistered = errors.New("symmetric key already registered")
)

// Violation errors are raised with panic and abort the call.
var (
	// ErrLastDevice indicates an attempt to delete the only remaining device of an identity.
	ErrLastDevice = errors.New("cannot delete the last remaining device")

	// ErrAnonymousCaller indicates the anonymous identity reached an authenticated operation.
	ErrAnonymousCaller = errors.New("anonymous caller is not allowed")

	// ErrCallerNotRegistered indicates an identity without devices reached a gated operation.
	ErrCallerNotRegistered = errors.New("caller is not registered")

	// ErrCallAborted wraps a violation once it has been recovered at the backend boundary.
	ErrCallAborted = errors.New("call aborted")
)

// Vault errors indicate issues with the local vault or device state.
var (
	// ErrVaultNotInitialized indicates no .kowhai directory could be found.
	ErrVaultNotInitialized = errors.New("vault has not been initialized")

	// ErrVaultAlreadyInitialized indicates the directory already holds a vault.
	ErrVaultAlreadyInitialized = errors.New("vault has already been initialized")

	// ErrInvalidVaultConfig indicates the vault configuration is malformed.
	ErrInvalidVaultConfig = errors.New("vault configuration is invalid")

	// ErrNoDevice indicates this machine has not registered a device in the vault.
	ErrNoDevice = errors.New("no device registered on this machine")

	// ErrInvalidDeviceName indicates a device alias with characters outside [a-zA-Z0-9_-].
	ErrInvalidDeviceName = errors.New("invalid device name")

	// ErrDeviceAliasTaken indicates the alias is already bound to a different public key.
	ErrDeviceAliasTaken = errors.New("device alias is bound to another key")

	// ErrUnknownDevice indicates the identity has no device with the given alias.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrRemovingSelf indicates an unconfirmed attempt to remove the device the command runs on.
	ErrRemovingSelf = errors.New("refusing to remove this machine's own device")

	// ErrDeviceKeyNotFound indicates the device key pair is missing on this machine.
	ErrDeviceKeyNotFound = errors.New("device key pair not found")

	// ErrNoSymmetricKey indicates this device cannot read the vault's symmetric key.
	ErrNoSymmetricKey = errors.New("symmetric key not available on this device")

	// ErrKeyDecryptFailed indicates the wrapped symmetric key could not be unwrapped.
	ErrKeyDecryptFailed = errors.New("failed to decrypt symmetric key")

	// ErrNoteDecryptFailed indicates a note could not be decrypted.
	ErrNoteDecryptFailed = errors.New("failed to decrypt note")

	// ErrNoteNotFound indicates no note with the given id exists for the identity.
	ErrNoteNotFound = errors.New("note not found")

	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrInvalidDateFormat indicates a date filter that is not YYYY-MM-DD.
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// Violation is the panic value used when a call breaks an invariant the
// caller was responsible for upholding.
type Violation struct {
	Err    error
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return v.Err.Error()
	}
	return v.Err.Error() + ": " + v.Detail
}

func (v *Violation) Unwrap() error {
	return v.Err
}

// Violate panics with a *Violation for err.
func Violate(err error, format string, args ...any) {
	panic(&Violation{Err: err, Detail: fmt.Sprintf(format, args...)})
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
