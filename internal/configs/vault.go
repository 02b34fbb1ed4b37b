package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the vault directory.
const DirName = ".kowhai"

// Vault locates the files of a vault rooted at Root.
type Vault struct {
	Root string
}

// Dir returns the .kowhai directory.
func (v Vault) Dir() string {
	return filepath.Join(v.Root, DirName)
}

// ConfigPath returns the vault config file.
func (v Vault) ConfigPath() string {
	return filepath.Join(v.Dir(), "config.toml")
}

// StatePath returns the backend snapshot file.
func (v Vault) StatePath() string {
	return filepath.Join(v.Dir(), "state.toml")
}

// AuditPath returns the audit log file.
func (v Vault) AuditPath() string {
	return filepath.Join(v.Dir(), "audit.jsonl")
}

// IsVault reports whether root contains a .kowhai directory.
func IsVault(root string) bool {
	info, err := os.Stat(filepath.Join(root, DirName))
	return err == nil && info.IsDir()
}

// FindVaultRoot traverses up from start to find the nearest vault root.
// Returns an empty string if none is found.
func FindVaultRoot(start string) (string, error) {
	currentDir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	for {
		fileInfo, err := os.Stat(filepath.Join(currentDir, DirName))
		if err == nil {
			if fileInfo.IsDir() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("error checking for %s directory at %s: %w", DirName, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", nil
		}
		currentDir = parentDir
	}
}
