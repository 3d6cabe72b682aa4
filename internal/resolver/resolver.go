// Package resolver decides what version the working copy should move
// to, given the tracking policy, the current version, and the remote
// release source. The decision is pure: no filesystem or git mutation
// happens here, so every row of the policy table is testable offline.
package resolver

import (
	"errors"
	"fmt"

	"github.com/mccannical/printerd/internal/policy"
	"github.com/mccannical/printerd/internal/release"
	"github.com/mccannical/printerd/internal/version"
)

// DefaultDevelopmentRef is the branch head tracked by the development
// channel.
const DefaultDevelopmentRef = "develop"

// Action is what the synchronizer should do.
type Action int

const (
	// ActionNone leaves the working copy where it is.
	ActionNone Action = iota
	// ActionCheckout moves the working copy to Decision.Target.
	ActionCheckout
)

// Decision is the resolver's verdict. Err, when set, is the contained
// fault behind a stay-put decision (unreachable remote, unknown pin);
// it is operator-visible but never aborts the run.
type Decision struct {
	Action Action
	Target version.Descriptor
	Reason string
	Err    error
}

// Source is the remote lookup capability the resolver consumes.
// *release.Source satisfies it.
type Source interface {
	Latest() (version.Descriptor, error)
	ByTag(tag string) (*release.Release, error)
}

// Resolver applies the tracking-policy decision table.
type Resolver struct {
	Source         Source
	DevelopmentRef string
}

// New returns a Resolver over src tracking the default development head.
func New(src Source) *Resolver {
	return &Resolver{Source: src, DevelopmentRef: DefaultDevelopmentRef}
}

// Decide computes the target for the current working-copy version under
// pol. Downgrades never happen implicitly: only an explicit pin below
// the current version moves backwards.
func (r *Resolver) Decide(current version.Descriptor, pol policy.Policy) Decision {
	if pol.PinnedVersion != "" {
		return r.decidePinned(current, pol.PinnedVersion)
	}
	if pol.Channel == policy.ChannelDevelopment {
		// The development head is re-synced on every run; whether it
		// moved is only known after the fetch.
		return Decision{
			Action: ActionCheckout,
			Target: version.Parse(r.developmentRef()),
			Reason: "development channel always re-syncs",
		}
	}
	return r.decideStable(current)
}

func (r *Resolver) decidePinned(current version.Descriptor, pin string) Decision {
	target := version.Parse(pin)
	if current.Equal(target) {
		return Decision{Action: ActionNone, Reason: fmt.Sprintf("already on pinned version %s", pin)}
	}

	if _, err := r.Source.ByTag(pin); err != nil {
		if errors.Is(err, release.ErrNoReleases) {
			return Decision{
				Action: ActionNone,
				Reason: fmt.Sprintf("pinned version %s not found, staying on %s", pin, describe(current)),
				Err:    err,
			}
		}
		return Decision{
			Action: ActionNone,
			Reason: fmt.Sprintf("cannot verify pinned version %s, staying on %s", pin, describe(current)),
			Err:    err,
		}
	}

	return Decision{
		Action: ActionCheckout,
		Target: target,
		Reason: fmt.Sprintf("pinned to %s", pin),
	}
}

func (r *Resolver) decideStable(current version.Descriptor) Decision {
	latest, err := r.Source.Latest()
	if err != nil {
		if errors.Is(err, release.ErrNoReleases) {
			return Decision{Action: ActionNone, Reason: "no releases published yet", Err: err}
		}
		return Decision{
			Action: ActionNone,
			Reason: fmt.Sprintf("release source unreachable, staying on %s", describe(current)),
			Err:    err,
		}
	}

	if current.Equal(latest) {
		return Decision{Action: ActionNone, Reason: fmt.Sprintf("already on latest release %s", latest)}
	}

	// A fresh or non-semantic working copy (development head, bare
	// commit) cannot be judged "ahead" numerically, so it always moves
	// onto the latest release.
	if current.IsZero() || !current.IsSemantic() {
		return Decision{
			Action: ActionCheckout,
			Target: latest,
			Reason: fmt.Sprintf("moving from %s to latest release %s", describe(current), latest),
		}
	}

	cmp, ordered := current.Compare(latest)
	if !ordered {
		// Latest release tag is not semantic; nothing to order against.
		return Decision{
			Action: ActionNone,
			Reason: fmt.Sprintf("latest release %s is not a semantic version, staying on %s", latest, current),
		}
	}
	if cmp < 0 {
		return Decision{
			Action: ActionCheckout,
			Target: latest,
			Reason: fmt.Sprintf("update available: %s -> %s", current, latest),
		}
	}
	return Decision{Action: ActionNone, Reason: fmt.Sprintf("current version %s is not behind latest %s", current, latest)}
}

func (r *Resolver) developmentRef() string {
	if r.DevelopmentRef != "" {
		return r.DevelopmentRef
	}
	return DefaultDevelopmentRef
}

func describe(d version.Descriptor) string {
	if d.IsZero() {
		return "no version"
	}
	return d.String()
}
