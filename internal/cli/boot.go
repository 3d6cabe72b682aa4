package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(bootCmd)
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot-time run: register the schedule and check in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAgent().Boot()
	},
}
