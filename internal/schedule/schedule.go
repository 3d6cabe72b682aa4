// Package schedule idempotently installs the agent's own periodic
// triggers in the user crontab. Reconciliation exactly replaces the
// lines bearing the managed tag and never touches entries created by
// other tools, so repeated runs converge without growth.
package schedule

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/mccannical/printerd/internal/branding"
)

// Entry is one periodic trigger owned by the agent.
type Entry struct {
	Spec    string // cron time expression, or @reboot
	Command string
}

func (e Entry) line(tag string) string {
	return e.Spec + " " + e.Command + " " + tag
}

// ManagedEntries returns the triggers the agent registers for itself:
// a periodic check-in, the boot-time run, and the daily maintenance
// chores that keep the working copy current.
func ManagedEntries(binPath string) []Entry {
	return []Entry{
		{Spec: "*/15 * * * *", Command: binPath + " run"},
		{Spec: "@reboot", Command: binPath + " boot"},
		{Spec: "17 3 * * *", Command: binPath + " chores"},
	}
}

// Reconcile computes the new crontab content: every existing line
// bearing tag is dropped, foreign lines are kept verbatim in order, and
// the wanted entries are appended tagged. Pure, so the replacement
// semantics are testable without touching a real crontab.
func Reconcile(existing []string, wanted []Entry, tag string) []string {
	out := make([]string, 0, len(existing)+len(wanted))
	for _, line := range existing {
		if strings.Contains(line, tag) {
			continue
		}
		out = append(out, line)
	}
	for _, e := range wanted {
		out = append(out, e.line(tag))
	}
	return out
}

// Registrar applies reconciled entries to the system crontab.
type Registrar struct {
	Tag string
}

// NewRegistrar returns a Registrar using the branded managed tag.
func NewRegistrar() *Registrar {
	return &Registrar{Tag: branding.CronTag()}
}

// Apply reads the current crontab, reconciles it against wanted, and
// writes the result back in one atomic `crontab -` replacement.
func (r *Registrar) Apply(wanted []Entry) error {
	existing, err := readCrontab()
	if err != nil {
		return err
	}
	return writeCrontab(Reconcile(existing, wanted, r.Tag))
}

// readCrontab returns the current user crontab lines. A missing crontab
// (first run on a fresh device) is an empty schedule, not an error.
func readCrontab() ([]string, error) {
	cmd := exec.Command("crontab", "-l")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if strings.Contains(string(output), "no crontab for") {
			return nil, nil
		}
		return nil, fmt.Errorf("reading crontab: %w\n%s", err, strings.TrimSpace(string(output)))
	}
	text := strings.TrimRight(string(output), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func writeCrontab(lines []string) error {
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	cmd := exec.Command("crontab", "-")
	cmd.Stdin = strings.NewReader(content)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("writing crontab: %w\n%s", err, strings.TrimSpace(string(output)))
	}
	return nil
}
