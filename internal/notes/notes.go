// Package notes stores encrypted notes per identity.
//
// Note data is opaque ciphertext produced on the client. Ids come from a
// single counter shared by every identity, so they are unique across the
// store and never reused. Authorization is the caller's job: the store
// trusts the identity it is given.
package notes

import (
	"sort"

	"github.com/PolarWolf314/kowhai/internal/identity"
)

// Note is an encrypted note.
type Note struct {
	ID   uint64
	Data string
}

// Store holds the notes of every identity.
type Store struct {
	notes   map[identity.Identity][]Note
	counter uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{notes: make(map[identity.Identity][]Note)}
}

// List returns a copy of the notes of id in insertion order.
func (s *Store) List(id identity.Identity) []Note {
	list := s.notes[id]
	out := make([]Note, len(list))
	copy(out, list)
	return out
}

// Add appends a note for id under the next id.
func (s *Store) Add(id identity.Identity, data string) Note {
	note := Note{ID: s.counter, Data: data}
	s.notes[id] = append(s.notes[id], note)
	s.counter++
	return note
}

// Delete removes the note with noteID from id. Unknown ids are ignored.
func (s *Store) Delete(id identity.Identity, noteID uint64) {
	list, ok := s.notes[id]
	if !ok {
		return
	}
	kept := list[:0]
	for _, n := range list {
		if n.ID != noteID {
			kept = append(kept, n)
		}
	}
	s.notes[id] = kept
}

// Update replaces the data of the note of id with the same id as note.
// It reports whether a note was updated.
func (s *Store) Update(id identity.Identity, note Note) bool {
	list := s.notes[id]
	for i := range list {
		if list[i].ID == note.ID {
			list[i].Data = note.Data
			return true
		}
	}
	return false
}

// Counter returns the id the next note will get.
func (s *Store) Counter() uint64 {
	return s.counter
}

// Entry is the exported state of one identity.
type Entry struct {
	Identity identity.Identity
	Notes    []Note
}

// Export returns the notes of every identity sorted by identity.
func (s *Store) Export() []Entry {
	entries := make([]Entry, 0, len(s.notes))
	for id, list := range s.notes {
		if len(list) == 0 {
			continue
		}
		entries = append(entries, Entry{Identity: id, Notes: s.List(id)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	return entries
}

// Restore builds a store from exported entries. The counter is raised past
// every restored id so new ids stay unique.
func Restore(counter uint64, entries []Entry) *Store {
	s := New()
	s.counter = counter
	for _, entry := range entries {
		for _, n := range entry.Notes {
			s.notes[entry.Identity] = append(s.notes[entry.Identity], n)
			if n.ID >= s.counter {
				s.counter = n.ID + 1
			}
		}
	}
	return s
}
