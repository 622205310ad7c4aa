package folder

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/services/notes"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/output"
)

func NewCmdFolder(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder",
		Aliases: []string{"dir"},
		Short:   "Rename, move or delete folders.",
		Long: heredoc.Doc(`
			Folders are path prefixes on notes. Renaming or moving a folder
			rewrites the path of every note at or below it.
		`),
	}

	cmd.AddCommand(
		newCmdRename(s),
		newCmdMove(s),
		newCmdRemove(s),
	)
	return cmd
}

func newCmdRename(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:     "rename [path] [new-name]",
		Short:   "Rename the last segment of a folder.",
		Example: "weave folder rename work/drafts archive",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := s.Notes.RenameFolder(cmd.Context(), s.Config.Owner, args[0], args[1])
			if err != nil {
				return err
			}
			report(cmd, change)
			return nil
		},
	}
}

func newCmdMove(s *state.State) *cobra.Command {
	return &cobra.Command{
		Use:   "move [path] [target]",
		Short: "Move a folder under another folder.",
		Long: heredoc.Doc(`
			Moves a folder, with everything below it, under target. Use "root"
			or "/" as the target to move it to the top level.
		`),
		Example: "weave folder move work/drafts personal",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			change, err := s.Notes.MoveFolder(cmd.Context(), s.Config.Owner, args[0], note.Destination(args[1]))
			if err != nil {
				return err
			}
			report(cmd, change)
			return nil
		},
	}
}

func newCmdRemove(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm [path]",
		Aliases: []string{"delete"},
		Short:   "Delete a folder and every note in it.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := note.NormalizeFolder(args[0])
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := output.Confirm(fmt.Sprintf("Delete %s and every note below it?", path))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ids, err := s.Notes.DeleteFolder(cmd.Context(), s.Config.Owner, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d notes)\n", path, len(ids))
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func report(cmd *cobra.Command, change notes.FolderChange) {
	if change.From == change.To {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is unchanged\n", change.From)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s (%d notes)\n", change.From, change.To, change.Notes)
}
