package cli

import (
	"strings"

	"github.com/mccannical/printerd/internal/agent"
	"github.com/mccannical/printerd/internal/branding"
	"github.com/mccannical/printerd/internal/config"
	"github.com/mccannical/printerd/internal/policy"
)

// newAgent assembles an Agent from the operator's effective
// configuration (flags > environment > config file > defaults).
func newAgent() *agent.Agent {
	return agent.New(agent.Options{
		InstallDir:    config.Get(config.KeyInstallDir),
		Origin:        branding.OriginURL(),
		ConfigDir:     config.Dir(),
		Override:      overridePolicy(),
		Principal:     config.Get(config.KeyPrincipal),
		Force:         config.GetBool(config.KeyForce),
		SkipChangelog: config.GetBool(config.KeySkipChangelog),
	}, log)
}

// overridePolicy captures only what the operator said explicitly this
// run; unset fields inherit the persisted policy during the merge.
func overridePolicy() policy.Policy {
	var p policy.Policy
	switch policy.Channel(strings.ToLower(config.Get(config.KeyChannel))) {
	case policy.ChannelStable:
		p.Channel = policy.ChannelStable
	case policy.ChannelDevelopment:
		p.Channel = policy.ChannelDevelopment
	case "":
	default:
		log.WithField("channel", config.Get(config.KeyChannel)).Warn("unknown channel, ignoring (use stable or development)")
	}
	p.PinnedVersion = config.Get(config.KeyPin)
	return p
}
