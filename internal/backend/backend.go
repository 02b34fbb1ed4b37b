// Package backend dispatches caller requests to the registry and the notes
// store.
//
// Every method takes the caller identity handed over by the authentication
// layer. The anonymous identity is rejected for every operation, and every
// operation other than RegisterDevice requires the caller to own at least
// one registered device. Both checks are violations: the call is aborted
// and the returned error wraps errors.ErrCallAborted.
//
// A Service serializes all calls behind one mutex, so each call runs to
// completion before the next starts. Because every check happens before any
// mutation, an aborted call leaves the state unchanged.
package backend

import (
	"fmt"
	"sync"

	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/identity"
	"github.com/PolarWolf314/kowhai/internal/notes"
	"github.com/PolarWolf314/kowhai/internal/registry"
)

// Service is the entry point for every caller operation.
type Service struct {
	mu       sync.Mutex
	registry *registry.Registry
	notes    *notes.Store
}

// New returns a service over reg and store. Nil arguments are replaced by
// empty instances.
func New(reg *registry.Registry, store *notes.Store) *Service {
	if reg == nil {
		reg = registry.New()
	}
	if store == nil {
		store = notes.New()
	}
	return &Service{registry: reg, notes: store}
}

// call runs fn under the service lock after checking the caller.
// Violations raised by the checks or by fn are returned as aborted calls.
func (s *Service) call(caller identity.Identity, gated bool, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			v, ok := r.(*kerrors.Violation)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("%w: %w", kerrors.ErrCallAborted, v)
		}
	}()

	if caller.IsAnonymous() {
		kerrors.Violate(kerrors.ErrAnonymousCaller, "%q", caller)
	}
	if gated && !s.registry.IsRegistered(caller) {
		kerrors.Violate(kerrors.ErrCallerNotRegistered, "identity %s has no devices", caller)
	}
	return fn()
}

// RegisterDevice binds alias to publicKey for the caller. It is the only
// operation open to an identity without devices.
func (s *Service) RegisterDevice(caller identity.Identity, alias, publicKey string) error {
	return s.call(caller, false, func() error {
		s.registry.RegisterDevice(caller, alias, publicKey)
		return nil
	})
}

// DeviceAliases returns the caller's device aliases.
func (s *Service) DeviceAliases(caller identity.Identity) ([]string, error) {
	var aliases []string
	err := s.call(caller, true, func() error {
		aliases = s.registry.DeviceAliases(caller)
		return nil
	})
	return aliases, err
}

// DevicePublicKey returns the public key bound to one of the caller's aliases.
func (s *Service) DevicePublicKey(caller identity.Identity, alias string) (string, bool, error) {
	var (
		pk string
		ok bool
	)
	err := s.call(caller, true, func() error {
		pk, ok = s.registry.PublicKey(caller, alias)
		return nil
	})
	return pk, ok, err
}

// DeleteDevice removes one of the caller's devices. Deleting the last
// device aborts the call with errors.ErrLastDevice.
func (s *Service) DeleteDevice(caller identity.Identity, alias string) error {
	return s.call(caller, true, func() error {
		s.registry.DeleteDevice(caller, alias)
		return nil
	})
}

// EncryptedSymmetricKey returns the symmetric key encrypted for publicKey.
func (s *Service) EncryptedSymmetricKey(caller identity.Identity, publicKey string) (string, error) {
	var encryptedKey string
	err := s.call(caller, true, func() error {
		var err error
		encryptedKey, err = s.registry.EncryptedSymmetricKey(caller, publicKey)
		return err
	})
	return encryptedKey, err
}

// UnsyncedPublicKeys returns the caller's public keys that still need the
// symmetric key.
func (s *Service) UnsyncedPublicKeys(caller identity.Identity) ([]string, error) {
	var keys []string
	err := s.call(caller, true, func() error {
		keys = s.registry.UnsyncedPublicKeys(caller)
		return nil
	})
	return keys, err
}

// IsEncryptedSymmetricKeyRegistered reports whether the caller has a
// symmetric key stored for any device.
func (s *Service) IsEncryptedSymmetricKeyRegistered(caller identity.Identity) (bool, error) {
	var registered bool
	err := s.call(caller, true, func() error {
		registered = s.registry.HasSymmetricKey(caller)
		return nil
	})
	return registered, err
}

// RegisterEncryptedSymmetricKey stores the caller's first symmetric key.
func (s *Service) RegisterEncryptedSymmetricKey(caller identity.Identity, publicKey, encryptedKey string) error {
	return s.call(caller, true, func() error {
		return s.registry.RegisterEncryptedSymmetricKey(caller, publicKey, encryptedKey)
	})
}

// UploadEncryptedSymmetricKeys pushes symmetric key copies for the caller's
// devices. Pairs applied before a failing pair stay applied.
func (s *Service) UploadEncryptedSymmetricKeys(caller identity.Identity, pairs []registry.KeyPair) error {
	return s.call(caller, true, func() error {
		return s.registry.UploadEncryptedSymmetricKeys(caller, pairs)
	})
}

// Notes returns the caller's notes.
func (s *Service) Notes(caller identity.Identity) ([]notes.Note, error) {
	var list []notes.Note
	err := s.call(caller, true, func() error {
		list = s.notes.List(caller)
		return nil
	})
	return list, err
}

// AddNote stores data as a new note of the caller.
func (s *Service) AddNote(caller identity.Identity, data string) (notes.Note, error) {
	var note notes.Note
	err := s.call(caller, true, func() error {
		note = s.notes.Add(caller, data)
		return nil
	})
	return note, err
}

// DeleteNote removes one of the caller's notes.
func (s *Service) DeleteNote(caller identity.Identity, id uint64) error {
	return s.call(caller, true, func() error {
		s.notes.Delete(caller, id)
		return nil
	})
}

// UpdateNote replaces the data of one of the caller's notes. A missing id
// is a no-op.
func (s *Service) UpdateNote(caller identity.Identity, note notes.Note) error {
	return s.call(caller, true, func() error {
		s.notes.Update(caller, note)
		return nil
	})
}

// State is a point-in-time copy of everything the service holds.
type State struct {
	Registry    []registry.Entry
	NoteCounter uint64
	Notes       []notes.Entry
}

// Export copies the service state.
func (s *Service) Export() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Registry:    s.registry.Export(),
		NoteCounter: s.notes.Counter(),
		Notes:       s.notes.Export(),
	}
}

// Restore returns a service holding state.
func Restore(state State) *Service {
	return New(registry.Restore(state.Registry), notes.Restore(state.NoteCounter, state.Notes))
}
