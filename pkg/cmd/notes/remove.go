package notes

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/state"
)

func newCmdRemove(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id|title]",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete a note and drop it from every backlink list.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := s.Notes.Resolve(ctx, s.Config.Owner, args[0])
			if err != nil {
				return err
			}
			if err := s.Notes.Delete(ctx, s.Config.Owner, n.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q (%s)\n", n.Title, n.ID)
			return nil
		},
	}
}
