package registry

import (
	"sort"

	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/identity"
)

// DeviceSet holds the devices of one identity and the encrypted symmetric
// keys they have received.
type DeviceSet struct {
	aliases map[string]string
	keys    map[string]string
}

func newDeviceSet() *DeviceSet {
	return &DeviceSet{
		aliases: make(map[string]string),
		keys:    make(map[string]string),
	}
}

// hasPublicKey reports whether publicKey is bound to any alias.
func (ds *DeviceSet) hasPublicKey(publicKey string) bool {
	for _, pk := range ds.aliases {
		if pk == publicKey {
			return true
		}
	}
	return false
}

// KeyPair is a public key and the symmetric key encrypted for it.
type KeyPair struct {
	PublicKey    string
	EncryptedKey string
}

// Registry maps identities to their device sets.
type Registry struct {
	sets map[identity.Identity]*DeviceSet
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sets: make(map[identity.Identity]*DeviceSet)}
}

// IsRegistered reports whether id has at least one device.
func (r *Registry) IsRegistered(id identity.Identity) bool {
	ds, ok := r.sets[id]
	return ok && len(ds.aliases) > 0
}

// RegisterDevice binds alias to publicKey under id. The first registration
// of an alias wins; registering it again leaves the stored key unchanged.
func (r *Registry) RegisterDevice(id identity.Identity, alias, publicKey string) {
	ds, ok := r.sets[id]
	if !ok {
		ds = newDeviceSet()
		r.sets[id] = ds
	}
	if _, exists := ds.aliases[alias]; exists {
		return
	}
	ds.aliases[alias] = publicKey
}

// DeviceAliases returns the aliases registered to id in no particular order.
func (r *Registry) DeviceAliases(id identity.Identity) []string {
	ds, ok := r.sets[id]
	if !ok {
		return []string{}
	}
	aliases := make([]string, 0, len(ds.aliases))
	for alias := range ds.aliases {
		aliases = append(aliases, alias)
	}
	return aliases
}

// PublicKey returns the public key bound to alias.
func (r *Registry) PublicKey(id identity.Identity, alias string) (string, bool) {
	ds, ok := r.sets[id]
	if !ok {
		return "", false
	}
	pk, ok := ds.aliases[alias]
	return pk, ok
}

// DeleteDevice removes alias and any key stored under its public key.
// It panics with ErrLastDevice if id has a single alias left.
func (r *Registry) DeleteDevice(id identity.Identity, alias string) {
	ds, ok := r.sets[id]
	if !ok {
		return
	}
	if len(ds.aliases) <= 1 {
		kerrors.Violate(kerrors.ErrLastDevice, "identity %s must keep at least one device", id)
	}

	publicKey, ok := ds.aliases[alias]
	if !ok {
		return
	}
	delete(ds.aliases, alias)
	// Removed even when another alias shares the public key; that alias
	// shows up as unsynced again.
	delete(ds.keys, publicKey)
}

// EncryptedSymmetricKey returns the encrypted symmetric key stored for publicKey.
func (r *Registry) EncryptedSymmetricKey(id identity.Identity, publicKey string) (string, error) {
	ds, ok := r.sets[id]
	if !ok {
		return "", kerrors.ErrDeviceNotRegistered
	}
	if !ds.hasPublicKey(publicKey) {
		return "", kerrors.ErrUnknownPublicKey
	}
	encryptedKey, ok := ds.keys[publicKey]
	if !ok {
		return "", kerrors.ErrKeyNotSynchronized
	}
	return encryptedKey, nil
}

// UnsyncedPublicKeys returns the registered public keys of id that have no
// encrypted symmetric key yet.
func (r *Registry) UnsyncedPublicKeys(id identity.Identity) []string {
	ds, ok := r.sets[id]
	if !ok {
		return []string{}
	}
	seen := make(map[string]bool, len(ds.aliases))
	unsynced := []string{}
	for _, pk := range ds.aliases {
		if seen[pk] {
			continue
		}
		seen[pk] = true
		if _, synced := ds.keys[pk]; !synced {
			unsynced = append(unsynced, pk)
		}
	}
	return unsynced
}

// HasSymmetricKey reports whether any public key of id holds a stored key.
func (r *Registry) HasSymmetricKey(id identity.Identity) bool {
	ds, ok := r.sets[id]
	return ok && len(ds.keys) > 0
}

// RegisterEncryptedSymmetricKey stores the first symmetric key of id.
// It fails with ErrAlreadyRegistered once any key has been stored.
func (r *Registry) RegisterEncryptedSymmetricKey(id identity.Identity, publicKey, encryptedKey string) error {
	ds, ok := r.sets[id]
	if !ok {
		return kerrors.ErrDeviceNotRegistered
	}
	if !ds.hasPublicKey(publicKey) {
		return kerrors.ErrUnknownPublicKey
	}
	if len(ds.keys) > 0 {
		return kerrors.ErrAlreadyRegistered
	}
	ds.keys[publicKey] = encryptedKey
	return nil
}

// UploadEncryptedSymmetricKeys stores each pair in order, overwriting
// existing entries. It stops at the first unknown public key and keeps the
// pairs already applied.
func (r *Registry) UploadEncryptedSymmetricKeys(id identity.Identity, pairs []KeyPair) error {
	ds, ok := r.sets[id]
	if !ok {
		return kerrors.ErrDeviceNotRegistered
	}
	for _, pair := range pairs {
		if !ds.hasPublicKey(pair.PublicKey) {
			return kerrors.ErrUnknownPublicKey
		}
		ds.keys[pair.PublicKey] = pair.EncryptedKey
	}
	return nil
}

// Device is an alias and the public key bound to it.
type Device struct {
	Alias     string
	PublicKey string
}

// Entry is the exported state of one identity.
type Entry struct {
	Identity identity.Identity
	Devices  []Device
	Keys     []KeyPair
}

// Export returns the registry contents sorted by identity, alias and
// public key.
func (r *Registry) Export() []Entry {
	entries := make([]Entry, 0, len(r.sets))
	for id, ds := range r.sets {
		entry := Entry{Identity: id}
		for alias, pk := range ds.aliases {
			entry.Devices = append(entry.Devices, Device{Alias: alias, PublicKey: pk})
		}
		for pk, ek := range ds.keys {
			entry.Keys = append(entry.Keys, KeyPair{PublicKey: pk, EncryptedKey: ek})
		}
		sort.Slice(entry.Devices, func(i, j int) bool { return entry.Devices[i].Alias < entry.Devices[j].Alias })
		sort.Slice(entry.Keys, func(i, j int) bool { return entry.Keys[i].PublicKey < entry.Keys[j].PublicKey })
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	return entries
}

// Restore builds a registry from exported entries. Keys whose public key is
// not bound to any alias of the entry are dropped.
func Restore(entries []Entry) *Registry {
	r := New()
	for _, entry := range entries {
		if len(entry.Devices) == 0 {
			continue
		}
		ds := newDeviceSet()
		for _, d := range entry.Devices {
			if _, exists := ds.aliases[d.Alias]; !exists {
				ds.aliases[d.Alias] = d.PublicKey
			}
		}
		for _, k := range entry.Keys {
			if ds.hasPublicKey(k.PublicKey) {
				ds.keys[k.PublicKey] = k.EncryptedKey
			}
		}
		r.sets[entry.Identity] = ds
	}
	return r
}
