package audit

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// TimestampFormat is the layout of Entry.Timestamp.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp string `json:"ts"`       // RFC3339 with microseconds.
	Identity  string `json:"identity"` // Identity UUID of the caller.
	Device    string `json:"device"`   // Alias of the device that acted.
	Operation string `json:"op"`

	// Optional fields depending on operation.
	TargetDevice string `json:"target_device,omitempty"` // For register/remove.
	KeysCount    int    `json:"keys_count,omitempty"`    // For sync.
	NoteID       uint64 `json:"note_id,omitempty"`       // For note add/edit/remove.
	FilesCount   int    `json:"files_count,omitempty"`   // For import.
	VaultName    string `json:"vault_name,omitempty"`    // For init.
	Aborted      bool   `json:"aborted,omitempty"`       // Call was rejected by the backend.
}

// Log appends an entry to the audit log at path.
// Failures are ignored so that operations never fail on audit logging.
func Log(path string, entry Entry) {
	if path == "" {
		return
	}

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}

	// #nosec G306 -- audit log is shared by every device of the vault.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = f.Write(append(data, '\n'))
}

// ReadEntries reads all entries from the audit log at path.
// Returns an empty slice if the log doesn't exist.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseEntries(data), nil
}

// ParseEntries parses JSON Lines data into audit entries.
// Malformed lines are silently skipped.
func ParseEntries(data []byte) []Entry {
	var entries []Entry
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
