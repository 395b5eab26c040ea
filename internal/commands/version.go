package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jheehg/webrtc-learning/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the roomcall version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "roomcall", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
