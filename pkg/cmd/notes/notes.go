package notes

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/state"
)

func NewCmdNotes(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"n"},
		Short:   "Create, read and organize notes.",
		Long: heredoc.Doc(`
			Note commands accept either a note id or a title. Titles match
			case-insensitively; on duplicates the newest note is used.
		`),
	}

	cmd.AddCommand(
		newCmdNew(s),
		newCmdEdit(s),
		newCmdShow(s),
		newCmdList(s),
		newCmdRemove(s),
		newCmdMove(s),
		newCmdBacklinks(s),
		newCmdFind(s),
	)
	return cmd
}
