// Command prep cleans delimited text files from the command line with the
// same operations the web UI offers.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/prep/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prep",
		Short:         "Clean and profile CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), level, "text"))
		},
	}
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	addCommands(root)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
