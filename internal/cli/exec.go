package cli

import (
	"os"

	"github.com/lydakis/shelld/internal/client"
	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <words...>",
		Short: "Run a command in the session shell",
		Long: `Joins the given words with single spaces and runs them in the session's
persistent shell. Merged stdout and stderr stream back to this process's
stdout. The exit code reflects the exchange with the daemon; the command's
own exit status is recorded in the session log.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
	// Flags must precede the command words: everything after the first
	// positional argument passes through verbatim, dashes included.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func runExec(cmd *cobra.Command, args []string) error {
	return client.Exec(sessionName, client.JoinWords(args), os.Stdout)
}
