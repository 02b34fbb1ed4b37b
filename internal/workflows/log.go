package workflows

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/configs"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
)

// LogOptions configures the log workflow.
type LogOptions struct {
	Scope

	// Limit is the maximum number of entries to return. 0 means no limit.
	Limit int

	// Reverse orders entries from most recent to oldest when true.
	Reverse bool

	// Device filters entries by the acting device alias.
	Device string

	// Operations filters entries by operation types (comma-separated).
	Operations string

	// Since filters entries after this date (YYYY-MM-DD format).
	Since string

	// Until filters entries before this date (YYYY-MM-DD format).
	Until string
}

// LogResult contains the outcome of a log operation.
type LogResult struct {
	Entries []audit.Entry

	// Total is the count of entries before filtering.
	Total int
}

// Log reads and filters the vault's audit log. It does not need a
// registered device.
//
// Returns ErrInvalidDateFormat if a date filter is not YYYY-MM-DD.
func Log(ctx context.Context, opts LogOptions) (*LogResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings, err := opts.settings()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	root, err := resolveVault(opts.Scope, settings)
	if err != nil {
		return nil, err
	}

	entries, err := audit.ReadEntries(configs.Vault{Root: root}.AuditPath())
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	result := &LogResult{Total: len(entries)}

	var since, until time.Time
	if opts.Since != "" {
		if since, err = time.Parse(time.DateOnly, opts.Since); err != nil {
			return nil, fmt.Errorf("%w: --since date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
	}
	if opts.Until != "" {
		if until, err = time.Parse(time.DateOnly, opts.Until); err != nil {
			return nil, fmt.Errorf("%w: --until date format invalid, use YYYY-MM-DD", kerrors.ErrInvalidDateFormat)
		}
		// Include the entire day.
		until = until.Add(24*time.Hour - time.Nanosecond)
	}

	var ops []string
	for _, op := range strings.Split(opts.Operations, ",") {
		if op = strings.TrimSpace(op); op != "" {
			ops = append(ops, strings.ToLower(op))
		}
	}

	filtered := slices.DeleteFunc(entries, func(e audit.Entry) bool {
		if opts.Device != "" && !strings.EqualFold(e.Device, opts.Device) {
			return true
		}
		if len(ops) > 0 && !slices.Contains(ops, strings.ToLower(e.Operation)) {
			return true
		}
		if since.IsZero() && until.IsZero() {
			return false
		}
		ts, err := time.Parse(audit.TimestampFormat, e.Timestamp)
		if err != nil {
			return true
		}
		return (!since.IsZero() && ts.Before(since)) || (!until.IsZero() && ts.After(until))
	})

	if opts.Reverse {
		slices.Reverse(filtered)
	}

	// Limit keeps the most recent entries.
	if opts.Limit > 0 && len(filtered) > opts.Limit {
		if opts.Reverse {
			filtered = filtered[:opts.Limit]
		} else {
			filtered = filtered[len(filtered)-opts.Limit:]
		}
	}

	result.Entries = filtered
	return result, nil
}
