package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Reconcile the agent's managed crontab entries",
	Long: `Reads the user crontab, removes every entry bearing the agent's
managed tag, and installs the current set of triggers. Entries created
by other tools are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAgent().ReconcileSchedule()
	},
}
