package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Normal run: gather environment info and post a check-in",
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAgent().Run()
	},
}
