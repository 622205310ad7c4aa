package notes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/fzf"
	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/flags"
)

// pick runs the interactive finder. Tests replace it.
var pick = func(notes []note.Note, header, query string) (note.Note, error) {
	return fzf.NewFinder(notes, header).Run(query)
}

func newCmdFind(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "find [query]",
		Aliases: []string{"f", "fzf"},
		Short:   "Fuzzy find a note and show it.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := s.Notes.List(cmd.Context(), note.Filter{
				Owner: s.Config.Owner,
				Scope: flags.HandleScope(cmd),
			})
			if err != nil {
				return err
			}

			chosen, err := pick(list, "Find a note", strings.Join(args, " "))
			if errors.Is(err, fzf.ErrNoSelection) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No note selected")
				return nil
			}
			if err != nil {
				return err
			}

			if onlyID, _ := cmd.Flags().GetBool("id"); onlyID {
				fmt.Fprintln(cmd.OutOrStdout(), chosen.ID)
				return nil
			}
			return show(cmd, s, chosen.ID)
		},
	}

	flags.AddFolder(cmd, "Folder scope: all, root or a folder path")
	cmd.Flags().Bool("id", false, "Print only the id of the chosen note")
	cmd.Flags().Bool("raw", false, "Print the raw markdown")
	flags.AddJSON(cmd)
	return cmd
}
