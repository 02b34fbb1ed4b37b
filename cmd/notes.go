package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PolarWolf314/kowhai/internal/ui"
	"github.com/PolarWolf314/kowhai/internal/utils"
	"github.com/PolarWolf314/kowhai/internal/workflows"

	"github.com/spf13/cobra"
)

const notePreviewWidth = 60

var (
	notesListFull bool
	importDryRun  bool
	importBaseDir string
)

// NotesCmd groups encrypted note commands.
var NotesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Read and write encrypted notes",
}

func init() {
	notesListCmd.Flags().BoolVar(&notesListFull, "full", false, "print whole notes instead of previews")
	notesImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "list matching files without importing them")
	notesImportCmd.Flags().StringVar(&importBaseDir, "base", "", "directory relative patterns are resolved against")

	NotesCmd.AddCommand(notesAddCmd)
	NotesCmd.AddCommand(notesListCmd)
	NotesCmd.AddCommand(notesEditCmd)
	NotesCmd.AddCommand(notesRemoveCmd)
	NotesCmd.AddCommand(notesImportCmd)
}

func resetNotesState() {
	notesListFull = false
	importDryRun = false
	importBaseDir = ""
}

// noteText returns the text given as arguments, or stdin when there are none.
func noteText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := utils.ReadStdin("pass the note as an argument or pipe it in")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parseNoteID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", arg)
	}
	return id, nil
}

var notesAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add an encrypted note",
	Long: `Encrypts a note with the vault key and stores it. The text is taken from
the arguments, or from stdin when none are given:

  kowhai notes add "buy kawakawa"
  cat ideas.md | kowhai notes add`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := noteText(cmd, args)
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Adding note...")
		defer cleanup()

		result, err := workflows.AddNote(context.Background(), workflows.AddNoteOptions{Scope: scope(), Text: text})
		if err != nil {
			return reportError(spinner, err)
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Note %d added", result.ID)
		return nil
	},
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List and decrypt your notes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Decrypting notes...")
		defer cleanup()

		result, err := workflows.ListNotes(context.Background(), workflows.ListNotesOptions{Scope: scope()})
		if err != nil {
			return reportError(spinner, err)
		}

		if len(result.Notes) == 0 {
			spinner.FinalMSG = "No notes yet. Add one with " + ui.Code.Sprint("kowhai notes add")
			return nil
		}

		var b strings.Builder
		failed := 0
		for i, n := range result.Notes {
			if i > 0 {
				b.WriteString("\n")
			}
			id := ui.Muted.Sprintf("#%d", n.ID)
			switch {
			case n.Err != nil:
				failed++
				Logger.Debugf("Note %d: %v", n.ID, n.Err)
				fmt.Fprintf(&b, "%s %s", id, ui.Error.Sprint("cannot be decrypted with the current key"))
			case notesListFull:
				fmt.Fprintf(&b, "%s\n%s\n", id, n.Text)
			default:
				fmt.Fprintf(&b, "%s %s", id, ui.Preview(n.Text, notePreviewWidth))
			}
		}
		if failed > 0 {
			Logger.WarnfAlways("%s could not be decrypted with this device's copy of the vault key", ui.Plural(failed, "note"))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}

var notesEditCmd = &cobra.Command{
	Use:   "edit <id> [text...]",
	Short: "Replace the text of a note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}
		text, err := noteText(cmd, args[1:])
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Updating note...")
		defer cleanup()

		if _, err := workflows.EditNote(context.Background(), workflows.EditNoteOptions{Scope: scope(), ID: id, Text: text}); err != nil {
			return reportError(spinner, err)
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Note %d updated", id)
		return nil
	},
}

var notesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Removing note...")
		defer cleanup()

		if _, err := workflows.RemoveNote(context.Background(), workflows.RemoveNoteOptions{Scope: scope(), ID: id}); err != nil {
			return reportError(spinner, err)
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(" Note %d removed", id)
		return nil
	},
}

var notesImportCmd = &cobra.Command{
	Use:   "import <pattern>...",
	Short: "Import files as encrypted notes",
	Long: `Stores each matching file as one encrypted note. Patterns may be files,
directories or globs with ** support:

  kowhai notes import journal/
  kowhai notes import "**/*.md"

Files inside .kowhai directories are never imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, cleanup := startSpinner(cmd.OutOrStdout(), "Importing notes...")
		defer cleanup()

		result, err := workflows.ImportNotes(context.Background(), workflows.ImportNotesOptions{
			Scope:    scope(),
			Patterns: args,
			BaseDir:  importBaseDir,
			DryRun:   importDryRun,
		})
		if err != nil {
			return reportError(spinner, err)
		}

		if result.DryRun {
			spinner.FinalMSG = ui.Warning.Sprint("[dry-run]") + " Would import " + ui.Plural(len(result.Files), "file") + ":" +
				strings.TrimSuffix(utils.FormatPaths(result.Files), "\n")
			return nil
		}
		spinner.FinalMSG = ui.Success.Sprint("✓") + " Imported " + ui.Plural(len(result.IDs), "note")
		return nil
	},
}
