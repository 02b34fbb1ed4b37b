package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

var syncDryRun bool

// KeysCmd groups vault key commands.
var KeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect and synchronize the vault key",
}

func init() {
	keysSyncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "list the devices that would receive the key")

	KeysCmd.AddCommand(keysStatusCmd)
	KeysCmd.AddCommand(keysSyncCmd)
}

func resetKeysState() {
	syncDryRun = false
}

var keysStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether this device can read the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Checking status...")
		defer cleanup()

		status, err := workflows.Status(context.Background(), workflows.StatusOptions{Scope: scope()})
		if err != nil {
			return reportError(spinner, err)
		}
		Logger.Debugf("Status: %+v", *status)

		var b strings.Builder
		fmt.Fprintf(&b, "Vault %s %s\n", ui.Highlight.Sprint(status.VaultName), ui.Muted.Sprint(status.Identity))

		switch {
		case status.DeviceRemoved:
			b.WriteString(ui.Error.Sprint("✗") + " Device " + ui.Device.Sprint(status.Device) + " has been removed from this vault\n")
			b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kowhai devices register") + " to register it again")
		case !status.Registered || status.Device == "":
			b.WriteString(ui.Warning.Sprint("⚠") + " This machine has no device in the vault\n")
			b.WriteString(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kowhai devices register"))
		default:
			fmt.Fprintf(&b, "  %s Device %s registered\n", ui.Mark(true), ui.Device.Sprint(status.Device))
			fmt.Fprintf(&b, "  %s Vault key %s\n", ui.Mark(status.Synced), syncedLabel(status.Synced))
			fmt.Fprintf(&b, "  %s registered, %s waiting for the key", ui.Plural(len(status.Devices), "device"), ui.Plural(status.UnsyncedCount, "key"))
			if status.Synced && status.UnsyncedCount > 0 {
				b.WriteString("\n" + ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kowhai keys sync") + " to share the key")
			}
		}

		spinner.FinalMSG = b.String()
		return nil
	},
}

func syncedLabel(synced bool) string {
	if synced {
		return "available on this device"
	}
	return "not yet synced to this device"
}

var keysSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Share the vault key with your unsynced devices",
	Long: `Encrypts the vault key for every registered device that does not have
it yet. Must be run on a device that can already read the vault.

Use --dry-run to list the devices without uploading keys.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Syncing keys...")
		defer cleanup()

		result, err := workflows.Sync(context.Background(), workflows.SyncOptions{
			Scope:  scope(),
			DryRun: syncDryRun,
		})
		if err != nil {
			return reportError(spinner, err)
		}

		var b strings.Builder
		switch {
		case len(result.Synced) == 0:
			b.WriteString(ui.Success.Sprint("✓") + " All devices are synced. Nothing to do.")
		case result.DryRun:
			b.WriteString(ui.Warning.Sprint("[dry-run]") + " Would share the vault key with " + ui.Plural(len(result.Synced), "key") + ":")
			for _, fp := range result.Synced {
				b.WriteString("\n  - " + fp)
			}
		default:
			b.WriteString(ui.Success.Sprint("✓") + " Shared the vault key with " + ui.Plural(len(result.Synced), "key"))
			for _, fp := range result.Synced {
				b.WriteString("\n  - " + fp)
			}
		}
		for _, fp := range result.Skipped {
			b.WriteString("\n" + ui.Warning.Sprint("⚠") + " Skipped unreadable public key " + fp)
		}

		spinner.FinalMSG = b.String()
		return nil
	},
}
