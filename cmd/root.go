package cmd

import (
	"errors"
	"fmt"

	logger "github.com/PolarWolf314/kowhai/internal/logging"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ErrReported is returned once a failure has already been shown to the user.
var ErrReported = errors.New("error reported")

// ExitCodeError asks main to exit with Code once the command has printed
// its outcome.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitCodeError) Unwrap() error {
	return ErrReported
}

var (
	verbose    bool
	debug      bool
	deviceFlag string
	vaultFlag  string
	Logger     logger.Logger

	RootCmd = &cobra.Command{
		Use:   "kowhai",
		Short: "Kōwhai - encrypted notes shared across your devices",
		Long: `Kōwhai keeps encrypted notes in a vault directory and shares the key
between every device you register.

Each device holds its own RSA key pair. The vault stores one symmetric key
per device, encrypted with that device's public key, so any synced device
can read your notes and bring new devices up to date.

Usage:
  kowhai <command> [flags]

Run 'kowhai help <command>' for more details on a specific command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
				Out:     cmd.OutOrStdout(),
				Err:     cmd.ErrOrStderr(),
			}
			Logger.Debugf("Running %s with verbose=%t, debug=%t", cmd.CommandPath(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			banner := figure.NewFigure("kowhai", "", true)
			fmt.Fprintln(cmd.OutOrStdout(), banner.String())
			fmt.Fprintln(cmd.OutOrStdout(), "Run 'kowhai --help' to see available commands.")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "device alias to act as (overrides KOWHAI_DEVICE)")
	RootCmd.PersistentFlags().StringVar(&vaultFlag, "vault", "", "vault directory (overrides KOWHAI_VAULT and discovery)")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(DevicesCmd)
	RootCmd.AddCommand(KeysCmd)
	RootCmd.AddCommand(NotesCmd)
	RootCmd.AddCommand(ConfigCmd)
	RootCmd.AddCommand(logCmd)
	RootCmd.AddCommand(doctorCmd)
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

// scope returns the workflow scope selected by the global flags.
func scope() workflows.Scope {
	return workflows.Scope{VaultDir: vaultFlag, Device: deviceFlag}
}

// ResetGlobalState resets all flag variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	deviceFlag = ""
	vaultFlag = ""
	resetInitState()
	resetDevicesState()
	resetKeysState()
	resetNotesState()
	resetConfigState()
	resetLogState()
	resetDoctorState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState clears the Changed mark on every flag to prevent test pollution.
func resetCobraFlagState(c *cobra.Command) {
	c.Flags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	c.PersistentFlags().VisitAll(func(flag *pflag.Flag) {
		flag.Changed = false
	})
	for _, sub := range c.Commands() {
		resetCobraFlagState(sub)
	}
}
