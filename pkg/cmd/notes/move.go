package notes

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/state"
)

func newCmdMove(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:     "mv [id|title] [folder]",
		Aliases: []string{"move"},
		Short:   "Move a note to another folder.",
		Long: heredoc.Doc(`
			Moves a single note. Use "root" or "/" as the folder to move it out
			of every folder.
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n, err := s.Notes.Resolve(ctx, s.Config.Owner, args[0])
			if err != nil {
				return err
			}

			moved, err := s.Notes.Move(ctx, s.Config.Owner, n.ID, note.Destination(args[1]))
			if err != nil {
				return err
			}

			target := moved.Folder
			if target == "" {
				target = note.RootFolder
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to %s\n", moved.Title, target)
			return nil
		},
	}
}
