package cli

import (
	"fmt"

	"github.com/lydakis/shelld/internal/daemon"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		Long:  "Lists sessions whose daemon is alive. Stale session state is skipped.",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, args []string) error {
	sessions, err := daemon.ListSessions()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}
