package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	initName  string
	initAlias string
)

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "vault name (defaults to the directory name)")
	initCmd.Flags().StringVarP(&initAlias, "alias", "a", "", "name of this device (defaults to the hostname)")
}

func resetInitState() {
	initName = ""
	initAlias = ""
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a vault in the current directory",
	Long: `Creates a .kowhai vault in the current directory (or --vault) and
registers this machine as its first device.

The first device generates the vault's symmetric key. Other devices join
with 'kowhai devices register' and receive the key once a synced device
runs 'kowhai keys sync'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		spinner, cleanup := startSpinner(out, "Creating vault...")
		defer cleanup()

		result, err := workflows.Init(context.Background(), workflows.InitOptions{
			Scope: scope(),
			Name:  initName,
			Alias: initAlias,
		})
		if err != nil {
			return reportError(spinner, err)
		}
		Logger.Infof("Vault %s created at %s", result.VaultUUID, result.Root)

		spinner.FinalMSG = ui.Success.Sprint("✓") + " Vault " + ui.Highlight.Sprint(result.VaultName) + " created\n" +
			fmt.Sprintf("  Device %s registered %s\n", ui.Device.Sprint(result.Device.Alias), ui.Muted.Sprint(result.Device.Fingerprint)) +
			ui.Info.Sprint("→") + " Add a note with " + ui.Code.Sprint("kowhai notes add")
		return nil
	},
}
