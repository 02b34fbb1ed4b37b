package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	logLimit      int
	logReverse    bool
	logDevice     string
	logOperations string
	logSince      string
	logUntil      string
	logJSON       bool
)

func init() {
	logCmd.Flags().IntVarP(&logLimit, "number", "n", 0, "show only the last N entries")
	logCmd.Flags().BoolVar(&logReverse, "reverse", false, "show most recent entries first")
	logCmd.Flags().StringVar(&logDevice, "by-device", "", "filter by the acting device alias")
	logCmd.Flags().StringVar(&logOperations, "operation", "", "filter by operation (comma-separated)")
	logCmd.Flags().StringVar(&logSince, "since", "", "show entries on or after this date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logUntil, "until", "", "show entries on or before this date (YYYY-MM-DD)")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output as JSON lines")
}

func resetLogState() {
	logLimit = 0
	logReverse = false
	logDevice = ""
	logOperations = ""
	logSince = ""
	logUntil = ""
	logJSON = false
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the vault's audit log",
	Long: `Shows who did what in the vault: device registrations and removals,
key syncs and note changes.

Examples:
  kowhai log -n 10
  kowhai log --operation sync,register --since 2026-01-01
  kowhai log --by-device laptop --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := workflows.Log(context.Background(), workflows.LogOptions{
			Scope:      scope(),
			Limit:      logLimit,
			Reverse:    logReverse,
			Device:     logDevice,
			Operations: logOperations,
			Since:      logSince,
			Until:      logUntil,
		})
		out := cmd.OutOrStdout()
		if err != nil {
			if msg, ok := describeError(err); ok {
				fmt.Fprintln(out, msg)
				return ErrReported
			}
			return err
		}

		if logJSON {
			enc := json.NewEncoder(out)
			for _, e := range result.Entries {
				if err := enc.Encode(e); err != nil {
					return err
				}
			}
			return nil
		}

		if len(result.Entries) == 0 {
			fmt.Fprintln(out, "No audit entries found.")
			return nil
		}
		for _, e := range result.Entries {
			fmt.Fprintln(out, formatEntry(e))
		}
		return nil
	},
}

func formatEntry(e audit.Entry) string {
	var details []string
	if e.TargetDevice != "" {
		details = append(details, "device="+e.TargetDevice)
	}
	if e.KeysCount > 0 {
		details = append(details, fmt.Sprintf("keys=%d", e.KeysCount))
	}
	if e.Operation == "note-add" || e.Operation == "note-edit" || e.Operation == "note-remove" {
		details = append(details, fmt.Sprintf("note=%d", e.NoteID))
	}
	if e.FilesCount > 0 {
		details = append(details, fmt.Sprintf("files=%d", e.FilesCount))
	}
	if e.VaultName != "" {
		details = append(details, "vault="+e.VaultName)
	}
	if e.Aborted {
		details = append(details, ui.Error.Sprint("aborted"))
	}

	line := fmt.Sprintf("%s  %-12s %-12s", ui.Muted.Sprint(e.Timestamp), e.Operation, ui.Device.Sprint(e.Device))
	if len(details) > 0 {
		line += " " + strings.Join(details, " ")
	}
	return strings.TrimRight(line, " ")
}
