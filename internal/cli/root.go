package cli

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mccannical/printerd/internal/branding"
	"github.com/mccannical/printerd/internal/config"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a field device's working copy in sync with the fleet's
release source, registers its own periodic triggers, and posts the
device's check-in. Invoked without a subcommand it performs a normal
check-in run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()

		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		level, err := logrus.ParseLevel(config.Get(config.KeyVerbosity))
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAgent().Run()
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String(config.KeyVerbosity, "info", "Log level (debug, info, warn, error)")
	config.BindFlag(config.KeyVerbosity, rootCmd.PersistentFlags().Lookup(config.KeyVerbosity))
}
