// Package deps refreshes the working copy's runtime dependencies after
// every resolution, so a checked-out release always runs against the
// requirements it shipped with.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ManifestName is the dependency manifest inside the working copy.
const ManifestName = "requirements.txt"

// Refresh installs or upgrades the dependencies listed in the working
// copy's manifest. A working copy without a manifest is a no-op.
func Refresh(workdir string) error {
	manifest := filepath.Join(workdir, ManifestName)
	if _, err := os.Stat(manifest); os.IsNotExist(err) {
		return nil
	}

	pip, err := exec.LookPath("pip3")
	if err != nil {
		return fmt.Errorf("pip3 is required to refresh dependencies but was not found in PATH")
	}

	cmd := exec.Command(pip, "install", "--upgrade", "-r", manifest)
	cmd.Dir = workdir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("refreshing dependencies: %w\n%s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
