package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

var doctorJSON bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
}

func resetDoctorState() {
	doctorJSON = false
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on the vault and this device",
	Long: `Runs a series of health checks on the vault and this device and reports issues.

The doctor command checks:
  - Vault configuration validity
  - User configuration and identity
  - Vault state readability
  - Device key existence and permissions
  - Device registration
  - Vault key synchronization

Exit codes:
  0 - All checks passed
  1 - Warnings found (non-critical issues)
  2 - Errors found (critical issues)

Use --json for machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting doctor command")

	spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Running health checks...")
	defer cleanup()

	result, err := workflows.Doctor(context.Background(), workflows.DoctorOptions{Scope: scope()})
	if err != nil {
		return reportError(spinner, err)
	}

	for _, check := range result.Checks {
		Logger.Debugf("Check %s: status=%s, message=%s", check.Name, check.Status, check.Message)
	}

	// The spinner must be stopped before the report is written.
	spinner.FinalMSG = ""
	cleanup()

	out := cmd.OutOrStdout()
	if doctorJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}
	} else {
		printDoctorResults(out, result)
	}

	switch {
	case result.Summary.Errors > 0:
		return &ExitCodeError{Code: 2}
	case result.Summary.Warnings > 0:
		return &ExitCodeError{Code: 1}
	}
	return nil
}

func printDoctorResults(out io.Writer, result *workflows.DoctorResult) {
	for _, check := range result.Checks {
		var statusIcon string
		switch check.Status {
		case workflows.CheckPass:
			statusIcon = ui.Success.Sprint("✓")
		case workflows.CheckWarning:
			statusIcon = ui.Warning.Sprint("⚠")
		case workflows.CheckError:
			statusIcon = ui.Error.Sprint("✗")
		}
		fmt.Fprintf(out, "%s %s: %s\n", statusIcon, check.Name, check.Message)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Summary: %d passed", result.Summary.Passed)
	if result.Summary.Warnings > 0 {
		fmt.Fprintf(out, ", %s", ui.Warning.Sprint(ui.Plural(result.Summary.Warnings, "warning")))
	}
	if result.Summary.Errors > 0 {
		fmt.Fprintf(out, ", %s", ui.Error.Sprint(ui.Plural(result.Summary.Errors, "error")))
	}
	fmt.Fprintln(out)

	if len(result.Suggestions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Suggestions:")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(out, "  %s %s\n", ui.Info.Sprint("→"), suggestion)
		}
	}
}
