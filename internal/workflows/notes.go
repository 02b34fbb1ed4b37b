package workflows

import (
	"context"
	"fmt"
	"slices"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/notes"
)

// PlainNote is a decrypted note.
type PlainNote struct {
	ID   uint64
	Text string

	// Err is set instead of Text when the note cannot be decrypted with the
	// current symmetric key.
	Err error
}

// AddNoteOptions configures the add note workflow.
type AddNoteOptions struct {
	Scope
	Text string
}

// NoteResult identifies the note a workflow wrote.
type NoteResult struct {
	ID uint64
}

// AddNote encrypts Text with the symmetric key and stores it as a new note.
func AddNote(ctx context.Context, opts AddNoteOptions) (*NoteResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	symKey, err := sess.symmetricKey()
	if err != nil {
		return nil, err
	}
	defer devicekeys.Zero(symKey)

	data, err := devicekeys.EncryptNote(symKey, []byte(opts.Text))
	if err != nil {
		return nil, err
	}

	note, err := sess.service.AddNote(sess.caller, data)
	if err := sess.persist(err); err != nil {
		return nil, err
	}

	sess.audit(audit.Entry{Operation: "note-add", NoteID: note.ID})
	return &NoteResult{ID: note.ID}, nil
}

// ListNotesOptions configures the list notes workflow.
type ListNotesOptions struct {
	Scope
}

// ListNotesResult contains the caller's notes in insertion order.
type ListNotesResult struct {
	Notes []PlainNote
}

// ListNotes decrypts and returns the caller's notes.
func ListNotes(ctx context.Context, opts ListNotesOptions) (*ListNotesResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	symKey, err := sess.symmetricKey()
	if err != nil {
		return nil, err
	}
	defer devicekeys.Zero(symKey)

	list, err := sess.service.Notes(sess.caller)
	if err != nil {
		return nil, err
	}

	result := &ListNotesResult{Notes: make([]PlainNote, 0, len(list))}
	for _, n := range list {
		plain := PlainNote{ID: n.ID}
		text, err := devicekeys.DecryptNote(symKey, n.Data)
		if err != nil {
			plain.Err = err
		} else {
			plain.Text = string(text)
		}
		result.Notes = append(result.Notes, plain)
	}
	return result, nil
}

// EditNoteOptions configures the edit note workflow.
type EditNoteOptions struct {
	Scope
	ID   uint64
	Text string
}

// EditNote replaces the text of one of the caller's notes.
//
// Returns ErrNoteNotFound if the caller has no note with ID.
func EditNote(ctx context.Context, opts EditNoteOptions) (*NoteResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	symKey, err := sess.symmetricKey()
	if err != nil {
		return nil, err
	}
	defer devicekeys.Zero(symKey)

	if err := requireNote(sess, opts.ID); err != nil {
		return nil, err
	}

	data, err := devicekeys.EncryptNote(symKey, []byte(opts.Text))
	if err != nil {
		return nil, err
	}

	if err := sess.persist(sess.service.UpdateNote(sess.caller, notes.Note{ID: opts.ID, Data: data})); err != nil {
		return nil, err
	}

	sess.audit(audit.Entry{Operation: "note-edit", NoteID: opts.ID})
	return &NoteResult{ID: opts.ID}, nil
}

// RemoveNoteOptions configures the remove note workflow.
type RemoveNoteOptions struct {
	Scope
	ID uint64
}

// RemoveNote deletes one of the caller's notes. The symmetric key is not
// needed, so unsynced devices may remove notes too.
//
// Returns ErrNoteNotFound if the caller has no note with ID.
func RemoveNote(ctx context.Context, opts RemoveNoteOptions) (*NoteResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	if err := requireNote(sess, opts.ID); err != nil {
		return nil, err
	}

	if err := sess.persist(sess.service.DeleteNote(sess.caller, opts.ID)); err != nil {
		return nil, err
	}

	sess.audit(audit.Entry{Operation: "note-remove", NoteID: opts.ID})
	return &NoteResult{ID: opts.ID}, nil
}

func requireNote(sess *session, id uint64) error {
	list, err := sess.service.Notes(sess.caller)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(list, func(n notes.Note) bool { return n.ID == id }) {
		return fmt.Errorf("%w: %d", kerrors.ErrNoteNotFound, id)
	}
	return nil
}
