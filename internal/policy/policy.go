// Package policy persists the operator's tracking policy across runs.
// The policy lives as a small key=value file (channel.conf) inside the
// working copy so it travels with the artifact it governs. A missing or
// corrupt file is never fatal: it simply means "no persisted policy".
package policy

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Channel selects which line of releases the agent tracks.
type Channel string

const (
	// ChannelStable tracks the latest published release.
	ChannelStable Channel = "stable"
	// ChannelDevelopment tracks the development branch head and is
	// re-synced on every run.
	ChannelDevelopment Channel = "development"
)

// FileName is the policy file inside the working copy.
const FileName = "channel.conf"

const (
	keyChannel = "channel"
	keyVersion = "version"
)

// Policy is the operator's tracking intent. A non-empty PinnedVersion
// overrides Channel.
type Policy struct {
	Channel       Channel
	PinnedVersion string
}

// Default returns the policy used when nothing is persisted and the
// operator supplied nothing.
func Default() Policy {
	return Policy{Channel: ChannelStable}
}

// Load reads the persisted policy from dir. A missing or unreadable
// file returns the empty policy: callers merge defaults in afterwards.
func Load(dir string) Policy {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return Policy{}
	}

	v := viper.New()
	v.SetConfigType("env")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		// Corrupt file: treat as absent.
		return Policy{}
	}

	p := Policy{
		PinnedVersion: strings.TrimSpace(v.GetString(keyVersion)),
	}
	switch Channel(strings.ToLower(strings.TrimSpace(v.GetString(keyChannel)))) {
	case ChannelStable:
		p.Channel = ChannelStable
	case ChannelDevelopment:
		p.Channel = ChannelDevelopment
	}
	return p
}

// Merge resolves this run's effective policy. Fields present in
// override (the operator's explicit input) win; otherwise the loaded
// value wins; otherwise the hard default (stable channel).
func Merge(loaded, override Policy) Policy {
	out := loaded
	if override.Channel != "" {
		out.Channel = override.Channel
	}
	if override.PinnedVersion != "" {
		out.PinnedVersion = override.PinnedVersion
	}
	if out.Channel == "" {
		out.Channel = ChannelStable
	}
	return out
}

// Persist writes the policy to dir atomically: the content is staged in
// a temp file and only renamed over the live file when it differs, so a
// byte-identical policy never churns the file's metadata and a torn
// write is never observable.
func Persist(dir string, p Policy) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating policy directory: %w", err)
	}

	content := encode(p)
	path := filepath.Join(dir, FileName)

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("staging policy file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing policy file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing policy file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing policy file: %w", err)
	}
	return nil
}

func encode(p Policy) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "CHANNEL=%s\n", p.Channel)
	fmt.Fprintf(&b, "VERSION=%s\n", p.PinnedVersion)
	return []byte(b.String())
}
