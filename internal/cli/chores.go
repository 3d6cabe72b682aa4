package cli

import (
	"github.com/spf13/cobra"

	"github.com/mccannical/printerd/internal/branding"
	"github.com/mccannical/printerd/internal/config"
)

func init() {
	f := choresCmd.Flags()
	f.String(config.KeyChannel, "", "Tracking channel (stable or development)")
	f.String(config.KeyPin, "", "Pin the working copy to a specific version (e.g., 1.0.8)")
	f.String(config.KeyInstallDir, branding.InstallDir(), "Working copy location")
	f.String(config.KeyPrincipal, "", "System identity that should own the working copy")
	f.Bool(config.KeyForce, false, "Replace a conflicting unmanaged install directory")
	f.Bool(config.KeySkipChangelog, false, "Do not print release notes after an update")

	for _, key := range []string{
		config.KeyChannel, config.KeyPin, config.KeyInstallDir,
		config.KeyPrincipal, config.KeyForce, config.KeySkipChangelog,
	} {
		config.BindFlag(key, f.Lookup(key))
	}

	rootCmd.AddCommand(choresCmd)
}

var choresCmd = &cobra.Command{
	Use:   "chores",
	Short: "Run periodic maintenance: sync the working copy and check in",
	Long: `Resolves the tracking policy, synchronizes the working copy with the
release source, enforces permissions, reports release notes, refreshes
dependencies, checks in, and re-registers the agent's own schedule.

Designed to run unattended from cron: transient failures degrade to
warnings and exit zero so the trigger stays healthy.

  ` + branding.CLIName() + ` chores                       # follow the persisted policy
  ` + branding.CLIName() + ` chores --channel development # switch to the development line
  ` + branding.CLIName() + ` chores --pin 1.0.8           # pin an exact version`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAgent().Chores()
	},
}
