package cli

import (
	"fmt"

	"github.com/lydakis/shelld/internal/client"
	"github.com/spf13/cobra"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a session daemon",
		Long:  "Asks the session daemon to shut down gracefully, terminating its shell.",
		Args:  cobra.NoArgs,
		RunE:  runStop,
	}
}

func runStop(cmd *cobra.Command, args []string) error {
	if err := client.Stop(sessionName); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "session %q stopped\n", sessionName)
	return nil
}
