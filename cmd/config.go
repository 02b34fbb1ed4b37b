package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/PolarWolf314/kowhai/internal/configs"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	configIdentity      string
	configEmail         string
	configDefaultDevice string
	configShowVault     bool
	configShowJSON      bool
)

// ConfigCmd groups configuration commands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Kōwhai configuration",
	Long: `Provides commands for managing your user and vault configuration.

Your identity is a UUID shared by all your devices. Create it on your first
machine with 'kowhai config init', then copy it to every other machine:

  kowhai config init --identity <uuid>`,
}

func init() {
	configInitCmd.Flags().StringVar(&configIdentity, "identity", "", "use an existing identity UUID")
	configInitCmd.Flags().StringVarP(&configEmail, "email", "e", "", "your email, for display only")
	configInitCmd.Flags().StringVar(&configDefaultDevice, "default-device", "", "default alias for devices registered from this machine")

	configShowCmd.Flags().BoolVar(&configShowVault, "vault", false, "show the vault configuration instead of the user configuration")
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")

	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

func resetConfigState() {
	configIdentity = ""
	configEmail = ""
	configDefaultDevice = ""
	configShowVault = false
	configShowJSON = false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up your identity",
	Long: `Creates your user configuration with a new identity UUID, or adopts the
identity given with --identity. Changing the identity of a machine that is
already registered somewhere makes those registrations unreachable from it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := configs.LoadSettings()
		if err != nil {
			return Logger.ErrorfAndReturn(err, "failed to load settings")
		}
		Logger.Debugf("User config path: %s", settings.UserConfigPath())

		config, err := configs.LoadUserConfig(settings)
		if err != nil {
			return Logger.ErrorfAndReturn(err, "failed to load user config")
		}

		if configIdentity != "" {
			if _, err := uuid.Parse(configIdentity); err != nil {
				return fmt.Errorf("identity must be a UUID: %w", err)
			}
			config.User.Identity = configIdentity
		}
		if config.User.Identity == "" {
			config.User.Identity = configs.GenerateIdentity()
		}
		if configEmail != "" {
			if !utils.IsValidEmail(configEmail) {
				return fmt.Errorf("invalid email address %q", configEmail)
			}
			config.User.Email = configEmail
		}
		if configDefaultDevice != "" {
			if !utils.IsValidDeviceName(configDefaultDevice) {
				return fmt.Errorf("%w: %q", kerrors.ErrInvalidDeviceName, configDefaultDevice)
			}
			config.User.DefaultDevice = configDefaultDevice
		}

		if err := configs.SaveUserConfig(settings, config); err != nil {
			return Logger.ErrorfAndReturn(err, "failed to save user config")
		}

		fmt.Fprintln(cmd.OutOrStdout(), ui.Success.Sprint("✓")+" Identity "+ui.Highlight.Sprint(config.User.Identity)+" saved to "+ui.Path.Sprint(settings.UserConfigPath()))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := configs.LoadSettings()
		if err != nil {
			return Logger.ErrorfAndReturn(err, "failed to load settings")
		}

		var value any
		if configShowVault {
			root := vaultFlag
			if root == "" {
				if root, err = settings.ResolveVault(); err != nil {
					return err
				}
			}
			if root == "" || !configs.IsVault(root) {
				msg, _ := describeError(kerrors.ErrVaultNotInitialized)
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return ErrReported
			}
			if value, err = configs.LoadVaultConfig(configs.Vault{Root: root}); err != nil {
				return err
			}
		} else {
			if value, err = configs.LoadUserConfig(settings); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if configShowJSON {
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn(err, "failed to marshal config to JSON")
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		switch c := value.(type) {
		case *configs.VaultConfig:
			fmt.Fprintln(out, ui.Info.Sprint("Vault Configuration"))
			fmt.Fprintf(out, "  %-16s %s\n", "Name:", ui.Highlight.Sprint(c.Vault.Name))
			fmt.Fprintf(out, "  %-16s %s\n", "Vault ID:", c.Vault.UUID)
			fmt.Fprintf(out, "  %-16s %s\n", "Created:", c.Vault.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		case *configs.UserConfig:
			fmt.Fprintln(out, ui.Info.Sprint("User Configuration")+" "+ui.Muted.Sprint(settings.UserConfigPath()))
			if c.User.Identity == "" {
				fmt.Fprintln(out, ui.Warning.Sprint("⚠")+" No identity yet. Run "+ui.Code.Sprint("kowhai config init"))
				return nil
			}
			fmt.Fprintf(out, "  %-16s %s\n", "Identity:", c.User.Identity)
			if c.User.Email != "" {
				fmt.Fprintf(out, "  %-16s %s\n", "Email:", c.User.Email)
			}
			if c.User.DefaultDevice != "" {
				fmt.Fprintf(out, "  %-16s %s\n", "Default Device:", ui.Device.Sprint(c.User.DefaultDevice))
			}
			if len(c.Vaults) > 0 {
				fmt.Fprintln(out, ui.Info.Sprint("Vaults:"))
				ids := make([]string, 0, len(c.Vaults))
				for id := range c.Vaults {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintf(out, "  %s → %s\n", shortID(id), ui.Device.Sprint(c.Vaults[id]))
				}
			}
		}
		return nil
	},
}

// shortID truncates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return strings.TrimSpace(id)
}
