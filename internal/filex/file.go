// Package filex holds file-system helpers for the file-backed stores.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// EnsureParentDir creates the directory that will hold path, readable by
// the owner only. It returns the absolute directory.
func EnsureParentDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// EnsurePerm0600 restricts an existing file to its owner. It is a no-op on
// Windows and for files that do not exist yet.
func EnsurePerm0600(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	if err := os.Chmod(path, 0o600); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
