package agent

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mccannical/printerd/internal/gitrepo"
	"github.com/mccannical/printerd/internal/policy"
	"github.com/mccannical/printerd/internal/resolver"
	"github.com/mccannical/printerd/internal/schedule"
	"github.com/mccannical/printerd/internal/version"
)

// fakeRepo scripts the synchronizer.
type fakeRepo struct {
	current     string
	ensureErr   error
	validateErr error
	checkoutErr error

	ensures   int
	checkouts []string
}

func (f *fakeRepo) Ensure(force bool) error {
	f.ensures++
	return f.ensureErr
}

func (f *fakeRepo) ValidateOrigin() error { return f.validateErr }

func (f *fakeRepo) Checkout(ref version.Descriptor) error {
	if f.checkoutErr != nil {
		return f.checkoutErr
	}
	f.checkouts = append(f.checkouts, ref.String())
	f.current = ref.String()
	return nil
}

func (f *fakeRepo) CurrentVersion() version.Descriptor { return version.Parse(f.current) }

// fakeDecider returns a scripted decision.
type fakeDecider struct {
	decision resolver.Decision
}

func (f *fakeDecider) Decide(current version.Descriptor, pol policy.Policy) resolver.Decision {
	return f.decision
}

// stableDecider mimics the stable channel against a fixed remote latest.
type stableDecider struct {
	latest string
}

func (d *stableDecider) Decide(current version.Descriptor, pol policy.Policy) resolver.Decision {
	latest := version.Parse(d.latest)
	if current.Equal(latest) {
		return resolver.Decision{Action: resolver.ActionNone, Reason: "on latest"}
	}
	return resolver.Decision{Action: resolver.ActionCheckout, Target: latest, Reason: "behind latest"}
}

// fakeRegistrar records applied entry sets.
type fakeRegistrar struct {
	applied [][]schedule.Entry
	err     error
}

func (f *fakeRegistrar) Apply(wanted []schedule.Entry) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, wanted)
	return nil
}

func newTestAgent(t *testing.T, repo *fakeRepo, decider Decider) (*Agent, *fakeRegistrar) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	reg := &fakeRegistrar{}
	a := New(Options{
		InstallDir: filepath.Join(t.TempDir(), "workdir"),
		Origin:     "https://example.com/fleet.git",
		ConfigDir:  t.TempDir(),
	}, log)
	a.out = io.Discard
	a.repo = repo
	a.decider = decider
	a.registrar = reg
	a.adjustOwnership = func(dir, principal string) (bool, error) { return false, nil }
	a.harden = func(dir string) error { return nil }
	a.report = func(w io.Writer, dir string, prev, curr version.Descriptor) error { return nil }
	a.refreshDeps = func(dir string) error { return nil }
	a.checkIn = func() error { return nil }
	a.execPath = func() (string, error) { return "/usr/local/bin/printerd", nil }
	return a, reg
}

func TestChores_AppliesUpdate(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5"}
	a, reg := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	reported := false
	a.report = func(w io.Writer, dir string, prev, curr version.Descriptor) error {
		reported = true
		if prev.String() != "v1.0.5" || curr.String() != "v1.0.9" {
			t.Errorf("changelog bounds = %s..%s", prev, curr)
		}
		return nil
	}

	if err := a.Chores(); err != nil {
		t.Fatalf("Chores failed: %v", err)
	}
	if len(repo.checkouts) != 1 || repo.checkouts[0] != "v1.0.9" {
		t.Errorf("checkouts = %v, want [v1.0.9]", repo.checkouts)
	}
	if !reported {
		t.Error("changelog not reported after version change")
	}
	if len(reg.applied) != 1 {
		t.Errorf("schedule applied %d times, want 1", len(reg.applied))
	}
}

func TestChores_SecondRunIsNoOp(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5"}
	a, _ := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	if err := a.Chores(); err != nil {
		t.Fatalf("first Chores failed: %v", err)
	}
	firstPolicy := readPolicy(t, a.opts.InstallDir)

	if err := a.Chores(); err != nil {
		t.Fatalf("second Chores failed: %v", err)
	}
	secondPolicy := readPolicy(t, a.opts.InstallDir)

	if len(repo.checkouts) != 1 {
		t.Errorf("second run should be a no-op sync, checkouts = %v", repo.checkouts)
	}
	if firstPolicy != secondPolicy {
		t.Errorf("policy file changed across identical runs:\n%q\n%q", firstPolicy, secondPolicy)
	}
}

func TestChores_OriginMismatchFailsBeforeCheckout(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5", validateErr: gitrepo.ErrOriginMismatch}
	a, reg := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	checkedIn := false
	a.checkIn = func() error {
		checkedIn = true
		return nil
	}

	err := a.Chores()
	if !errors.Is(err, gitrepo.ErrOriginMismatch) {
		t.Fatalf("expected ErrOriginMismatch, got %v", err)
	}
	if len(repo.checkouts) != 0 {
		t.Errorf("checkout attempted on tampered working copy: %v", repo.checkouts)
	}
	// The device must stay observable even when tampered with.
	if !checkedIn {
		t.Error("diagnostic skipped on origin mismatch")
	}
	if len(reg.applied) != 1 {
		t.Error("schedule not reconciled on origin mismatch")
	}
}

func TestChores_ConflictAborts(t *testing.T) {
	repo := &fakeRepo{ensureErr: gitrepo.ErrConflict}
	a, reg := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	err := a.Chores()
	if !errors.Is(err, gitrepo.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(reg.applied) != 0 {
		t.Error("nothing should run after an unresolved conflict")
	}
}

func TestChores_CheckoutFailureDegrades(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5", checkoutErr: gitrepo.ErrRefNotFound}
	a, reg := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	if err := a.Chores(); err != nil {
		t.Fatalf("ref-not-found must not fail the run, got %v", err)
	}
	if repo.current != "v1.0.5" {
		t.Errorf("version moved despite failed checkout: %s", repo.current)
	}
	if len(reg.applied) != 1 {
		t.Error("schedule skipped after degraded checkout")
	}
}

func TestChores_SkipChangelog(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5"}
	a, _ := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})
	a.opts.SkipChangelog = true

	reported := false
	a.report = func(w io.Writer, dir string, prev, curr version.Descriptor) error {
		reported = true
		return nil
	}

	if err := a.Chores(); err != nil {
		t.Fatalf("Chores failed: %v", err)
	}
	if reported {
		t.Error("changelog reported despite skip flag")
	}
}

func TestChores_PersistsMergedPolicy(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.9"}
	a, _ := newTestAgent(t, repo, &fakeDecider{decision: resolver.Decision{Action: resolver.ActionNone, Reason: "pinned"}})
	a.opts.Override = policy.Policy{PinnedVersion: "v1.0.9"}

	if err := a.Chores(); err != nil {
		t.Fatalf("Chores failed: %v", err)
	}

	got := policy.Load(a.opts.InstallDir)
	if got.PinnedVersion != "v1.0.9" {
		t.Errorf("pin not persisted: %+v", got)
	}
	if got.Channel != policy.ChannelStable {
		t.Errorf("channel should default to stable, got %q", got.Channel)
	}
}

func TestBoot_ReconcilesAndChecksIn(t *testing.T) {
	repo := &fakeRepo{current: "v1.0.5"}
	a, reg := newTestAgent(t, repo, &stableDecider{latest: "v1.0.9"})

	checkedIn := false
	a.checkIn = func() error {
		checkedIn = true
		return nil
	}

	if err := a.Boot(); err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	if len(reg.applied) != 1 {
		t.Error("boot did not reconcile the schedule")
	}
	if !checkedIn {
		t.Error("boot did not check in")
	}
	if repo.ensures != 0 {
		t.Error("boot must not touch the working copy")
	}
}

func readPolicy(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, policy.FileName))
	if err != nil {
		t.Fatalf("reading policy file: %v", err)
	}
	return string(data)
}
