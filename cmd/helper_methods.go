package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/utils"

	"github.com/briandowns/spinner"
)

// startSpinner starts a spinner on interactive terminals unless verbose or
// debug output is enabled. The returned cleanup stops it and prints
// FinalMSG to out, adding a trailing newline if needed.
func startSpinner(out io.Writer, message string) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := !verbose && !debug && utils.IsStdoutTerminal()
	if animate {
		s.Start()
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Cleared so that Stop does not print it.
			s.FinalMSG = ""
		}
		if animate {
			s.Stop()
		}
		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// describeError turns a workflow error into the message shown to the user.
// The boolean is false for errors with no dedicated message.
func describeError(err error) (string, bool) {
	hint := func(msg, command string) string {
		return ui.Error.Sprint("✗") + " " + msg + "\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint(command)
	}
	fail := func(msg string) string {
		return ui.Error.Sprint("✗") + " " + msg
	}

	switch {
	case errors.Is(err, kerrors.ErrVaultNotInitialized):
		return hint("Kōwhai has not been initialized here", "kowhai init"), true
	case errors.Is(err, kerrors.ErrVaultAlreadyInitialized):
		return fail("This directory already holds a vault"), true
	case errors.Is(err, kerrors.ErrInvalidVaultConfig):
		return fail("The vault configuration is invalid\n" + ui.Error.Sprint("Error: ") + err.Error()), true
	case errors.Is(err, kerrors.ErrLastDevice):
		return fail("Cannot remove your last device\n" +
			ui.Info.Sprint("→") + " Register another device first, or keep this one"), true
	case errors.Is(err, kerrors.ErrAnonymousCaller):
		return hint("No identity is configured", "kowhai config init"), true
	case errors.Is(err, kerrors.ErrCallerNotRegistered), errors.Is(err, kerrors.ErrNoDevice):
		return hint("This machine has no device in the vault", "kowhai devices register"), true
	case errors.Is(err, kerrors.ErrDeviceKeyNotFound):
		return hint("This device's key pair is missing", "kowhai devices register"), true
	case errors.Is(err, kerrors.ErrNoSymmetricKey):
		return fail("This device cannot read the vault key yet\n" +
			ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("kowhai keys sync") + " on a synced device"), true
	case errors.Is(err, kerrors.ErrKeyDecryptFailed):
		return fail("Failed to decrypt the vault key with this device's private key"), true
	case errors.Is(err, kerrors.ErrInvalidDeviceName):
		return fail("Device names may only contain letters, numbers, hyphens and underscores\n" +
			ui.Error.Sprint("Error: ") + err.Error()), true
	case errors.Is(err, kerrors.ErrDeviceAliasTaken):
		return fail("That device name is already used by another device\n" +
			ui.Info.Sprint("→") + " Choose a different name with " + ui.Code.Sprint("--alias")), true
	case errors.Is(err, kerrors.ErrRemovingSelf):
		return fail("This removes the device you are running on\n" +
			ui.Info.Sprint("→") + " Pass " + ui.Code.Sprint("--yes") + " to confirm"), true
	case errors.Is(err, kerrors.ErrUnknownDevice):
		return hint("No such device", "kowhai devices list"), true
	case errors.Is(err, kerrors.ErrNoteNotFound):
		return hint("No such note", "kowhai notes list"), true
	case errors.Is(err, kerrors.ErrNoFilesFound):
		return fail("No files matched the given patterns"), true
	case errors.Is(err, kerrors.ErrInvalidDateFormat):
		return fail(err.Error()), true
	}
	return "", false
}

// reportError shows err through the spinner's final message when it has a
// dedicated message, and returns ErrReported. Other errors are returned
// for the caller to print.
func reportError(s *spinner.Spinner, err error) error {
	Logger.Errorf("%v", err)
	if msg, ok := describeError(err); ok {
		s.FinalMSG = msg
		return ErrReported
	}
	return err
}
