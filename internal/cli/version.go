package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the launcher version reported to the interpreter and by
// `easel version`.
const Version = "1.2.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the launcher version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "easel %s\n", Version)
	},
}
