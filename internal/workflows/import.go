package workflows

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/PolarWolf314/kowhai/internal/audit"
	"github.com/PolarWolf314/kowhai/internal/configs"
	"github.com/PolarWolf314/kowhai/internal/devicekeys"
	kerrors "github.com/PolarWolf314/kowhai/internal/errors"
)

// ImportNotesOptions configures the import notes workflow.
type ImportNotesOptions struct {
	Scope

	// Patterns are files, directories or doublestar globs such as
	// "journal/**/*.md".
	Patterns []string

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	// DryRun lists the matching files without storing notes.
	DryRun bool
}

// ImportNotesResult contains the outcome of an import.
type ImportNotesResult struct {
	Files  []string
	IDs    []uint64
	DryRun bool
}

// ImportNotes stores every matching file as one encrypted note.
//
// Returns ErrNoFilesFound if the patterns match nothing.
func ImportNotes(ctx context.Context, opts ImportNotesOptions) (*ImportNotesResult, error) {
	sess, err := openSession(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		if baseDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}

	files, err := resolveNoteFiles(opts.Patterns, baseDir)
	if err != nil {
		return nil, err
	}

	result := &ImportNotesResult{Files: files, DryRun: opts.DryRun}
	if opts.DryRun {
		return result, nil
	}

	symKey, err := sess.symmetricKey()
	if err != nil {
		return nil, err
	}
	defer devicekeys.Zero(symKey)

	var addErr error
	for _, file := range files {
		if addErr = ctx.Err(); addErr != nil {
			break
		}

		content, err := os.ReadFile(file)
		if err != nil {
			addErr = fmt.Errorf("reading %s: %w", file, err)
			break
		}
		data, err := devicekeys.EncryptNote(symKey, content)
		if err != nil {
			addErr = err
			break
		}
		note, err := sess.service.AddNote(sess.caller, data)
		if err != nil {
			addErr = err
			break
		}
		result.IDs = append(result.IDs, note.ID)
	}

	// Notes added before a failure are kept.
	if err := sess.persist(addErr); err != nil {
		return nil, err
	}

	sess.audit(audit.Entry{Operation: "note-import", FilesCount: len(result.IDs)})
	return result, nil
}

// resolveNoteFiles expands patterns into a deduplicated list of regular
// files, skipping anything inside a vault directory.
func resolveNoteFiles(patterns []string, baseDir string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolveNotePattern(pattern, baseDir)
		if err != nil {
			return nil, err
		}
		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	return files, nil
}

func resolveNotePattern(pattern, baseDir string) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findNoteFiles(absPattern)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		matches, err := doublestar.FilepathGlob(absPattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		slices.Sort(matches)
		return slices.DeleteFunc(matches, inVaultDir), nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrNoFilesFound, pattern)
	}
	return []string{absPattern}, nil
}

func findNoteFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == configs.DirName {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func inVaultDir(path string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(path), "/"), configs.DirName)
}
