// Package permissions enforces ownership and access-mode invariants on
// the working copy around every mutation. Failures here are degraded
// conditions, not fatal ones: a device with wrong ownership must still
// complete its scheduled run.
package permissions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrDegraded marks a permission adjustment that could not be applied
// without elevated privilege. Callers warn and continue.
var ErrDegraded = errors.New("permission adjustment skipped")

// DirMode is the restrictive mode the working copy converges to.
const DirMode = os.FileMode(0o755)

// Harden sets the working directory to a restrictive mode and clears
// group/other write on executable scripts at its top level.
func Harden(dir string) error {
	if err := chmod(dir, DirMode); err != nil {
		return fmt.Errorf("hardening %s: %w", dir, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isScript(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		want := info.Mode().Perm() &^ 0o022
		if want == info.Mode().Perm() {
			continue
		}
		if err := chmod(path, want); err != nil {
			return fmt.Errorf("restricting %s: %w", path, err)
		}
	}
	return nil
}

func isScript(name string) bool {
	return strings.HasSuffix(name, ".sh") || strings.HasSuffix(name, ".py")
}

// chmod applies mode on Unix and is a no-op on Windows, which has no
// Unix permission bits.
func chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}
