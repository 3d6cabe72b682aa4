//go:build !windows

package permissions

import (
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
)

// AdjustOwnership converges the working copy's ownership toward the
// configured principal. The recursive transfer only happens when the
// agent runs elevated, the principal resolves to a system identity, and
// the top-level owner actually differs; otherwise the call is a cheap
// no-op or a degraded warning. Returns whether ownership was changed.
func AdjustOwnership(dir, principal string) (bool, error) {
	if principal == "" {
		return false, nil
	}

	if os.Geteuid() != 0 {
		if writable(dir) {
			return false, nil
		}
		return false, fmt.Errorf("%w: not running as root and %s is not writable; run `sudo chown -R %s %s` to fix",
			ErrDegraded, dir, principal, dir)
	}

	u, err := user.Lookup(principal)
	if err != nil {
		return false, fmt.Errorf("%w: principal %q is not a system identity", ErrDegraded, principal)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return false, fmt.Errorf("parsing uid for %s: %w", principal, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return false, fmt.Errorf("parsing gid for %s: %w", principal, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}
	if st, ok := info.Sys().(*syscall.Stat_t); ok && int(st.Uid) == uid && int(st.Gid) == gid {
		// Already owned by the principal; skip the recursive walk.
		return false, nil
	}

	err = filepath.WalkDir(dir, func(path string, _ fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		return os.Lchown(path, uid, gid)
	})
	if err != nil {
		return false, fmt.Errorf("transferring ownership of %s to %s: %w", dir, principal, err)
	}
	return true, nil
}

func writable(dir string) bool {
	f, err := os.CreateTemp(dir, ".perm-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}
