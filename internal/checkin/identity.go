package checkin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const uuidFileName = "printer_uuid.txt"

// DeviceUUID returns the device's persistent identity, creating a
// time-based UUID on first run. The file sits in configDir with
// restrictive permissions (0700 dir, 0600 file). Persistence failures
// degrade to an ephemeral identity rather than blocking the check-in.
func DeviceUUID(configDir string) (string, error) {
	dirErr := ensureConfigDir(configDir)

	path := filepath.Join(configDir, uuidFileName)
	if data, err := os.ReadFile(path); err == nil {
		if existing := strings.TrimSpace(string(data)); existing != "" {
			return existing, nil
		}
	}

	id, err := uuid.NewUUID()
	if err != nil {
		// No usable hardware address or clock; fall back to random.
		id = uuid.New()
	}

	if dirErr != nil {
		return id.String(), fmt.Errorf("device identity is ephemeral: %w", dirErr)
	}

	if err := os.WriteFile(path, []byte(id.String()), 0o600); err != nil {
		return id.String(), fmt.Errorf("persisting device UUID at %s (using ephemeral value): %w", path, err)
	}
	return id.String(), nil
}

func ensureConfigDir(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating config directory %s: %w", dir, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking config directory %s: %w", dir, err)
	}

	// Tighten an existing directory that is open to group/other.
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("tightening config directory %s: %w", dir, err)
		}
	}
	return nil
}
