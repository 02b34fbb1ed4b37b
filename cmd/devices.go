package cmd

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	registerAlias string
	removeYes     bool
)

// DevicesCmd groups device management commands.
var DevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the devices registered to your identity",
}

func init() {
	devicesRegisterCmd.Flags().StringVarP(&registerAlias, "alias", "a", "", "name of this device (defaults to the hostname)")
	devicesRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "remove this machine's own device without asking")

	DevicesCmd.AddCommand(devicesRegisterCmd)
	DevicesCmd.AddCommand(devicesListCmd)
	DevicesCmd.AddCommand(devicesRemoveCmd)
}

func resetDevicesState() {
	registerAlias = ""
	removeYes = false
}

var devicesRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this machine as a device",
	Long: `Generates a key pair for this machine (if it has none) and registers it
with the vault under your identity.

A newly registered device cannot read notes until one of your synced
devices runs 'kowhai keys sync'. Registering again is harmless and
reports the device's current sync state.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Registering device...")
		defer cleanup()

		result, err := workflows.Register(context.Background(), workflows.RegisterOptions{
			Scope: scope(),
			Alias: registerAlias,
		})
		if err != nil {
			return reportError(spinner, err)
		}
		Logger.Debugf("Register result: %+v", *result)

		msg := ui.Success.Sprint("✓") + " Device " + ui.Device.Sprint(result.Alias) + " registered " + ui.Muted.Sprint(result.Fingerprint)
		if result.AlreadyRegistered {
			msg = ui.Success.Sprint("✓") + " Device " + ui.Device.Sprint(result.Alias) + " is already registered " + ui.Muted.Sprint(result.Fingerprint)
		}

		switch result.KeyState {
		case workflows.KeyOriginated:
			msg += "\n  A new vault key was created for your identity."
		case workflows.KeyPending:
			msg += "\n" + ui.Warning.Sprint("⚠") + " This device cannot read notes yet\n" +
				ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kowhai keys sync") + " on one of your synced devices"
		}
		spinner.FinalMSG = msg
		return nil
	},
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your registered devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Loading devices...")
		defer cleanup()

		result, err := workflows.ListDevices(context.Background(), workflows.ListDevicesOptions{Scope: scope()})
		if err != nil {
			return reportError(spinner, err)
		}

		msg := ui.Plural(len(result.Devices), "device") + ":"
		for _, d := range result.Devices {
			state := ui.Muted.Sprint("unsynced")
			if d.Synced {
				state = ui.Success.Sprint("synced")
			}
			current := ""
			if d.Current {
				current = " " + ui.Info.Sprint("← this machine")
			}
			msg += fmt.Sprintf("\n  %s %-24s %s %s%s", ui.Mark(d.Synced), ui.Device.Sprint(d.Alias), d.Fingerprint, state, current)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <alias>",
	Short: "Remove one of your devices",
	Long: `Removes a device from your identity and deletes the vault key stored
for it. The removed device can no longer read notes.

Your last remaining device cannot be removed. Removing this machine's own
device also deletes its local key pair, and requires --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Removing device...")
		defer cleanup()

		result, err := workflows.RemoveDevice(context.Background(), workflows.RemoveDeviceOptions{
			Scope:     scope(),
			Alias:     args[0],
			AllowSelf: removeYes,
		})
		if err != nil {
			return reportError(spinner, err)
		}

		msg := ui.Success.Sprint("✓") + " Device " + ui.Device.Sprint(result.Alias) + " removed"
		if result.RemovedSelf {
			msg += "\n  This machine's key pair was deleted."
		}
		spinner.FinalMSG = msg
		return nil
	},
}
