// Package snapshot persists backend state between CLI invocations.
//
// The state lives in .kowhai/state.toml. Identities, aliases and public keys
// are stored as values inside arrays of tables, never as TOML keys, so any
// opaque string round-trips unchanged.
package snapshot

import (
	"fmt"
	"os"

	"github.com/PolarWolf314/kowhai/internal/backend"
	"github.com/PolarWolf314/kowhai/internal/configs"
	"github.com/PolarWolf314/kowhai/internal/identity"
	"github.com/PolarWolf314/kowhai/internal/notes"
	"github.com/PolarWolf314/kowhai/internal/registry"
)

// Version is the snapshot format written by Save.
const Version = 1

type document struct {
	Version  int         `toml:"version"`
	Registry registryDoc `toml:"registry"`
	Notes    notesDoc    `toml:"notes"`
}

type registryDoc struct {
	Identities []identityDoc `toml:"identities,omitempty"`
}

type identityDoc struct {
	Identity string      `toml:"identity"`
	Devices  []deviceDoc `toml:"devices,omitempty"`
	Keys     []keyDoc    `toml:"keys,omitempty"`
}

type deviceDoc struct {
	Alias     string `toml:"alias"`
	PublicKey string `toml:"public_key"`
}

type keyDoc struct {
	PublicKey    string `toml:"public_key"`
	EncryptedKey string `toml:"encrypted_key"`
}

type notesDoc struct {
	Counter    uint64         `toml:"counter"`
	Identities []noteOwnerDoc `toml:"identities,omitempty"`
}

type noteOwnerDoc struct {
	Identity string    `toml:"identity"`
	Notes    []noteDoc `toml:"notes,omitempty"`
}

type noteDoc struct {
	ID   uint64 `toml:"id"`
	Data string `toml:"data"`
}

// Load reads the state at path. A missing file yields an empty state.
func Load(path string) (backend.State, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return backend.State{}, nil
	}

	var doc document
	if err := configs.LoadTOML(path, &doc); err != nil {
		return backend.State{}, fmt.Errorf("failed to load state: %w", err)
	}
	if doc.Version > Version {
		return backend.State{}, fmt.Errorf("state file version %d is newer than supported version %d", doc.Version, Version)
	}

	return fromDocument(doc), nil
}

// Save writes state to path atomically.
func Save(path string, state backend.State) error {
	if err := configs.SaveTOML(path, toDocument(state)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func toDocument(state backend.State) document {
	doc := document{Version: Version}

	for _, entry := range state.Registry {
		id := identityDoc{Identity: string(entry.Identity)}
		for _, d := range entry.Devices {
			id.Devices = append(id.Devices, deviceDoc{Alias: d.Alias, PublicKey: d.PublicKey})
		}
		for _, k := range entry.Keys {
			id.Keys = append(id.Keys, keyDoc{PublicKey: k.PublicKey, EncryptedKey: k.EncryptedKey})
		}
		doc.Registry.Identities = append(doc.Registry.Identities, id)
	}

	doc.Notes.Counter = state.NoteCounter
	for _, entry := range state.Notes {
		owner := noteOwnerDoc{Identity: string(entry.Identity)}
		for _, n := range entry.Notes {
			owner.Notes = append(owner.Notes, noteDoc{ID: n.ID, Data: n.Data})
		}
		doc.Notes.Identities = append(doc.Notes.Identities, owner)
	}

	return doc
}

func fromDocument(doc document) backend.State {
	var state backend.State

	for _, id := range doc.Registry.Identities {
		entry := registry.Entry{Identity: identity.Identity(id.Identity)}
		for _, d := range id.Devices {
			entry.Devices = append(entry.Devices, registry.Device{Alias: d.Alias, PublicKey: d.PublicKey})
		}
		for _, k := range id.Keys {
			entry.Keys = append(entry.Keys, registry.KeyPair{PublicKey: k.PublicKey, EncryptedKey: k.EncryptedKey})
		}
		state.Registry = append(state.Registry, entry)
	}

	state.NoteCounter = doc.Notes.Counter
	for _, owner := range doc.Notes.Identities {
		entry := notes.Entry{Identity: identity.Identity(owner.Identity)}
		for _, n := range owner.Notes {
			entry.Notes = append(entry.Notes, notes.Note{ID: n.ID, Data: n.Data})
		}
		state.Notes = append(state.Notes, entry)
	}

	return state
}
