// Package audit records vault operations in an append-only log.
//
// Every command that reaches the backend (device registration and removal,
// key sync, note edits) appends one entry to the vault's audit log, so the
// devices sharing a vault can see what the others did and when.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	.kowhai/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Identity UUID and the device alias that acted
//   - Operation name
//   - Operation-specific details (target device, key count, note id)
//
// # Usage
//
//	entry := audit.Entry{Identity: id, Device: alias, Operation: "sync"}
//	entry.KeysCount = len(pairs)
//	audit.Log(vault.AuditPath(), entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If the log cannot be written the operation
// still succeeds.
//
// # Reading Logs
//
// ReadEntries parses the log for "kowhai log". Malformed lines are skipped
// to tolerate partial writes.
package audit
