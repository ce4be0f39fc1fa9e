package cli

import (
	"fmt"

	"github.com/lydakis/shelld/internal/daemon"
	"github.com/spf13/cobra"
)

var startShell string

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a session daemon",
		Long: `Starts the background daemon for a session and its persistent shell.
Fails if the session is already running; a lock file left by a crashed
daemon is detected and replaced.`,
		Args: cobra.NoArgs,
		RunE: runStart,
	}
	cmd.Flags().StringVar(&startShell, "shell", "", "shell to run (overrides config)")
	return cmd
}

func runStart(cmd *cobra.Command, args []string) error {
	if err := daemon.StartSession(sessionName, startShell); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %q started\n", sessionName)
	return nil
}
