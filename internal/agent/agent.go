// Package agent sequences a full maintenance run: resolve the tracking
// policy, synchronize the working copy, enforce permissions, report the
// changelog, refresh dependencies, and check in. The sequence runs
// unattended from a periodic trigger, so every contained fault degrades
// to an operator-visible warning; only tampering and unresolved
// directory conflicts abort the run.
package agent

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/mccannical/printerd/internal/changelog"
	"github.com/mccannical/printerd/internal/checkin"
	"github.com/mccannical/printerd/internal/deps"
	"github.com/mccannical/printerd/internal/gitrepo"
	"github.com/mccannical/printerd/internal/permissions"
	"github.com/mccannical/printerd/internal/policy"
	"github.com/mccannical/printerd/internal/release"
	"github.com/mccannical/printerd/internal/resolver"
	"github.com/mccannical/printerd/internal/schedule"
	"github.com/mccannical/printerd/internal/version"
)

// Options carries one invocation's operator input.
type Options struct {
	InstallDir    string
	Origin        string
	ConfigDir     string
	Override      policy.Policy // this run's explicit channel/pin input
	Principal     string
	Force         bool
	SkipChangelog bool
}

// Syncer materializes and moves the working copy.
type Syncer interface {
	Ensure(force bool) error
	ValidateOrigin() error
	Checkout(ref version.Descriptor) error
	CurrentVersion() version.Descriptor
}

// Decider applies the tracking-policy decision table.
type Decider interface {
	Decide(current version.Descriptor, pol policy.Policy) resolver.Decision
}

// Registrar replaces the agent's managed schedule entries.
type Registrar interface {
	Apply(wanted []schedule.Entry) error
}

// Agent runs the maintenance sequence. The function fields default to
// the real collaborators and exist as seams for tests.
type Agent struct {
	opts Options
	log  logrus.FieldLogger
	out  io.Writer

	repo      Syncer
	decider   Decider
	registrar Registrar

	adjustOwnership func(dir, principal string) (bool, error)
	harden          func(dir string) error
	report          func(w io.Writer, dir string, prev, curr version.Descriptor) error
	refreshDeps     func(dir string) error
	checkIn         func() error
	execPath        func() (string, error)
}

// New wires an Agent against the real collaborators.
func New(opts Options, log logrus.FieldLogger) *Agent {
	a := &Agent{
		opts:      opts,
		log:       log,
		out:       os.Stdout,
		repo:      gitrepo.New(opts.InstallDir, opts.Origin),
		decider:   resolver.New(release.New()),
		registrar: schedule.NewRegistrar(),

		adjustOwnership: permissions.AdjustOwnership,
		harden:          permissions.Harden,
		report:          changelog.Report,
		refreshDeps:     deps.Refresh,
		execPath:        os.Executable,
	}
	a.checkIn = a.runCheckIn
	return a
}

// Chores performs the full periodic maintenance run.
func (a *Agent) Chores() error {
	pre := a.repo.CurrentVersion()

	pol := policy.Merge(policy.Load(a.opts.InstallDir), a.opts.Override)
	a.log.WithFields(logrus.Fields{
		"channel": pol.Channel,
		"pin":     pol.PinnedVersion,
	}).Info("resolved tracking policy")

	// An unwritable or conflicting install dir is one of the few fatal
	// conditions: nothing downstream can proceed without a working copy.
	if err := a.repo.Ensure(a.opts.Force); err != nil {
		if errors.Is(err, gitrepo.ErrConflict) {
			a.log.WithError(err).Error("install directory conflicts with unmanaged content; rerun with --force to replace it")
		} else {
			a.log.WithError(err).Error("cannot materialize working copy")
		}
		return err
	}

	// Tampering is reported loudly and fails the run, but the remaining
	// hardening and liveness steps still execute so the device stays
	// observable.
	originErr := a.repo.ValidateOrigin()
	if originErr != nil {
		a.log.WithError(originErr).Error("working copy origin check failed, skipping update")
	}

	if changed, err := a.adjustOwnership(a.opts.InstallDir, a.opts.Principal); err != nil {
		a.log.WithError(err).Warn("ownership adjustment skipped")
	} else if changed {
		a.log.WithField("principal", a.opts.Principal).Info("transferred working copy ownership")
	}

	if originErr == nil {
		if err := policy.Persist(a.opts.InstallDir, pol); err != nil {
			a.log.WithError(err).Warn("could not persist tracking policy")
		}
		a.update(pre, pol)

		// Dependencies are refreshed after every resolution, update or
		// no-op, so a partially applied previous run still converges.
		if err := a.refreshDeps(a.opts.InstallDir); err != nil {
			a.log.WithError(err).Warn("dependency refresh failed")
		}
	}

	// The diagnostic runs even when nothing changed, so every scheduled
	// run confirms liveness.
	if err := a.checkIn(); err != nil {
		a.log.WithError(err).Warn("check-in failed")
	}

	schedErr := a.ReconcileSchedule()
	if originErr != nil {
		return originErr
	}
	return schedErr
}

// update resolves and applies the version decision. Everything in here
// is contained: a vanished ref or unreachable remote leaves the device
// on its current version with a warning.
func (a *Agent) update(pre version.Descriptor, pol policy.Policy) {
	decision := a.decider.Decide(a.repo.CurrentVersion(), pol)
	if decision.Err != nil {
		a.log.WithError(decision.Err).Warn(decision.Reason)
	} else {
		a.log.Info(decision.Reason)
	}

	if decision.Action == resolver.ActionCheckout {
		if err := a.repo.Checkout(decision.Target); err != nil {
			a.log.WithError(err).WithField("target", decision.Target.String()).Warn("checkout failed, staying on current version")
		} else if err := a.harden(a.opts.InstallDir); err != nil {
			a.log.WithError(err).Warn("could not harden working copy permissions")
		}
	}

	post := a.repo.CurrentVersion()
	if post.Equal(pre) {
		return
	}
	if !a.opts.SkipChangelog {
		if err := a.report(a.out, a.opts.InstallDir, pre, post); err != nil {
			a.log.WithError(err).Warn("could not report changelog")
		}
	}
	a.log.WithFields(logrus.Fields{
		"from": describe(pre),
		"to":   post.String(),
	}).Info("working copy updated")
}

// Boot handles the @reboot trigger: make sure the schedule is in place,
// then confirm liveness.
func (a *Agent) Boot() error {
	if err := a.ReconcileSchedule(); err != nil {
		return err
	}
	if err := a.checkIn(); err != nil {
		a.log.WithError(err).Warn("check-in failed")
	}
	return nil
}

// Run handles the normal periodic mode: a check-in only.
func (a *Agent) Run() error {
	if err := a.checkIn(); err != nil {
		a.log.WithError(err).Warn("check-in failed")
	}
	return nil
}

// ReconcileSchedule exactly replaces the agent's managed crontab
// entries, leaving foreign entries untouched.
func (a *Agent) ReconcileSchedule() error {
	bin, err := a.execPath()
	if err != nil {
		return fmt.Errorf("locating agent binary for schedule entries: %w", err)
	}
	wanted := schedule.ManagedEntries(bin)
	if err := a.registrar.Apply(wanted); err != nil {
		a.log.WithError(err).Error("could not register periodic schedule")
		return err
	}
	a.log.WithField("entries", len(wanted)).Info("periodic schedule registered")
	return nil
}

// runCheckIn is the real diagnostic/telemetry step: gather the
// environment, print the operator's test ticket, and post the
// schema-validated payload.
func (a *Agent) runCheckIn() error {
	id, err := checkin.DeviceUUID(a.opts.ConfigDir)
	if err != nil {
		// Ephemeral identity still checks in.
		a.log.WithError(err).Warn("device identity degraded")
	}

	env := checkin.NewGatherer().Gather()
	checkin.PrintTestTicket(a.out, id, env)

	summary, err := checkin.NewClient().Post(checkin.BuildPayload(env, id))
	if err != nil {
		return err
	}
	a.log.WithField("response", summary).Info("check-in complete")
	return nil
}

func describe(d version.Descriptor) string {
	if d.IsZero() {
		return "none"
	}
	return d.String()
}
