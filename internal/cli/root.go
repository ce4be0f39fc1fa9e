// Package cli wires the shelld subcommands. Commands talk to the session
// daemon through the client package; the daemon itself is entered via the
// hidden __daemon argv handled in cmd/shelld/main.go before cobra runs.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/lydakis/shelld/internal/ipc"
	"github.com/spf13/cobra"
)

var sessionName string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelld",
		Short: "Persistent shell sessions for short-lived commands",
		Long: `shelld keeps one long-lived shell per session and feeds it commands over
named pipes. Working directory, exported variables, and other shell state
survive across separate invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&sessionName, "session", "s", "default", "session name")

	root.AddCommand(newStartCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newStopCmd())
	root.AddCommand(newListCmd())
	return root
}

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "shelld: %v\n", err)
		return exitCode(err)
	}
	return ipc.ExitOK
}

// exitCode maps exchange errors onto the documented exit codes. The
// executed command's own status is never part of this: the client's exit
// code reflects the exchange with the daemon only.
func exitCode(err error) int {
	switch {
	case errors.Is(err, ipc.ErrSessionNotFound):
		return ipc.ExitUnavailable
	case errors.Is(err, ipc.ErrAlreadyRunning):
		return ipc.ExitExchangeErr
	case errors.Is(err, ipc.ErrInvalidSessionID),
		errors.Is(err, ipc.ErrMessageTooLarge),
		errors.Is(err, ipc.ErrRequestMalformed):
		return ipc.ExitUsageErr
	default:
		return ipc.ExitInternal
	}
}
