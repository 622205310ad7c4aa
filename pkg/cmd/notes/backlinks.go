package notes

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/flags"
	"github.com/Paintersrp/weave/pkg/shared/output"
)

func newCmdBacklinks(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backlinks [id|title]",
		Aliases: []string{"bl"},
		Short:   "List the notes that link to a note.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := s.Notes.Resolve(ctx, s.Config.Owner, args[0])
			if err != nil {
				return err
			}
			_, refs, err := s.Notes.GetWithBacklinks(ctx, s.Config.Owner, n.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.HandleJSON(cmd) {
				return output.PrintJSON(out, refs)
			}
			if len(refs) == 0 {
				fmt.Fprintf(out, "Nothing links to %q.\n", n.Title)
				return nil
			}
			for _, r := range refs {
				fmt.Fprintf(out, "%s\t%s\n", r.ID, r.Title)
			}
			return nil
		},
	}
	flags.AddJSON(cmd)
	return cmd
}
