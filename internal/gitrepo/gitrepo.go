// Package gitrepo materializes and maintains the device's working copy
// as a git checkout of the canonical fleet repository. Every operation
// is re-entrant: a run killed mid-clone or mid-checkout leaves a state
// the next run converges from, never a state it silently skips.
package gitrepo

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mccannical/printerd/internal/version"
)

var (
	// ErrConflict means the destination exists, is non-empty, and is not
	// a working copy this agent manages. Fatal unless force is set.
	ErrConflict = errors.New("destination exists and is not a managed working copy")
	// ErrOriginMismatch means the working copy's recorded remote does
	// not match the canonical source. Possible tampering; always fatal.
	ErrOriginMismatch = errors.New("working copy origin does not match canonical source")
	// ErrRefNotFound means the requested version does not resolve even
	// after a remote refresh.
	ErrRefNotFound = errors.New("ref not found on remote")
)

// tmpSuffix is appended to the target dir during atomic clone.
const tmpSuffix = ".tmp"

// Repo is a working copy rooted at Dir, expected to track Origin.
type Repo struct {
	Dir    string
	Origin string
}

// New returns a Repo for the working copy at dir tracking origin.
func New(dir, origin string) *Repo {
	return &Repo{Dir: dir, Origin: origin}
}

// Exists reports whether dir holds a working copy marker (.git).
func (r *Repo) Exists() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// Ensure makes the working copy present: a no-op when it already
// exists, a clone when the destination is absent or empty. A non-empty
// unmanaged destination fails with ErrConflict unless force is set, in
// which case it is destroyed and re-cloned.
func (r *Repo) Ensure(force bool) error {
	if err := ensureGit(); err != nil {
		return err
	}

	if r.Exists() {
		return nil
	}

	if entries, err := os.ReadDir(r.Dir); err == nil && len(entries) > 0 {
		if !force {
			return fmt.Errorf("%w: %s", ErrConflict, r.Dir)
		}
		if err := os.RemoveAll(r.Dir); err != nil {
			return fmt.Errorf("removing conflicting directory: %w", err)
		}
	}

	return r.clone()
}

// clone fetches the origin into a .tmp sibling and renames it into
// place, so an interrupted clone never masquerades as a working copy.
func (r *Repo) clone() error {
	tmpDir := r.Dir + tmpSuffix

	// Clean up any leftover tmp dir from a previous failed attempt.
	_ = os.RemoveAll(tmpDir)

	if err := os.MkdirAll(filepath.Dir(r.Dir), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if _, err := git("", "clone", r.Origin, tmpDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("cloning working copy: %w", err)
	}

	_ = os.Remove(r.Dir) // clone target may exist as an empty dir
	if err := os.Rename(tmpDir, r.Dir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing clone: %w", err)
	}
	return nil
}

// ValidateOrigin fails with ErrOriginMismatch when the working copy's
// recorded remote differs from the canonical origin. Runs after every
// ensure to catch out-of-band redirection.
func (r *Repo) ValidateOrigin() error {
	recorded, err := git(r.Dir, "config", "--get", "remote.origin.url")
	if err != nil {
		return fmt.Errorf("reading working copy origin: %w", err)
	}
	if normalizeOrigin(recorded) != normalizeOrigin(r.Origin) {
		return fmt.Errorf("%w: recorded %q, expected %q", ErrOriginMismatch, strings.TrimSpace(recorded), r.Origin)
	}
	return nil
}

// Checkout moves the working copy to ref after a remote refresh. A
// branch ref is force-reset to its remote head so the development
// channel re-syncs even when the local branch drifted; tags and commits
// check out detached. Returns ErrRefNotFound when nothing resolves.
func (r *Repo) Checkout(ref version.Descriptor) error {
	if _, err := git(r.Dir, "fetch", "--tags", "--force", "origin"); err != nil {
		return fmt.Errorf("refreshing remote refs: %w", err)
	}

	name := ref.String()

	if r.hasRef("refs/remotes/origin/" + name) {
		if _, err := git(r.Dir, "checkout", "-B", name, "origin/"+name); err != nil {
			return fmt.Errorf("checking out branch %s: %w", name, err)
		}
		return nil
	}

	for _, tag := range tagCandidates(name) {
		if r.hasRef("refs/tags/" + tag) {
			if _, err := git(r.Dir, "checkout", "--detach", tag); err != nil {
				return fmt.Errorf("checking out tag %s: %w", tag, err)
			}
			return nil
		}
	}

	if r.hasRef(name + "^{commit}") {
		if _, err := git(r.Dir, "checkout", "--detach", name); err != nil {
			return fmt.Errorf("checking out %s: %w", name, err)
		}
		return nil
	}

	return fmt.Errorf("%w: %s", ErrRefNotFound, name)
}

// CurrentVersion reports the version the working copy sits on: the
// exact tag when HEAD is tagged, else the short commit hash as an
// opaque ref. The zero descriptor means there is no working copy yet.
func (r *Repo) CurrentVersion() version.Descriptor {
	if !r.Exists() {
		return version.Descriptor{}
	}
	if tag, err := git(r.Dir, "describe", "--tags", "--exact-match"); err == nil {
		return version.Parse(tag)
	}
	if hash, err := git(r.Dir, "rev-parse", "--short", "HEAD"); err == nil {
		return version.Parse(hash)
	}
	return version.Descriptor{}
}

func (r *Repo) hasRef(ref string) bool {
	_, err := git(r.Dir, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// tagCandidates tolerates operators writing a pin with or without the
// "v" prefix the fleet's tags carry.
func tagCandidates(name string) []string {
	if strings.HasPrefix(name, "v") {
		return []string{name, strings.TrimPrefix(name, "v")}
	}
	return []string{name, "v" + name}
}

func normalizeOrigin(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimRight(u, "/")
	return strings.TrimSuffix(u, ".git")
}

// git runs a git command in dir (or the process cwd when dir is empty)
// and returns its trimmed output.
func git(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// ensureGit checks that git is available on PATH.
func ensureGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git is required but not found in PATH")
	}
	return nil
}
