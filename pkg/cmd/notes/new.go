package notes

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/flags"
	"github.com/Paintersrp/weave/pkg/shared/output"
)

func newCmdNew(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "new [title]",
		Aliases: []string{"add", "create"},
		Short:   "Create a note.",
		Long: heredoc.Doc(`
			Creates a note and records a backlink on every note its [[Title]]
			links resolve to.
		`),
		Example: heredoc.Doc(`
			weave notes new "Graph theory" --folder research --content "see [[Euler]]"
			weave notes new "Meeting" --paste
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd, s, args[0])
		},
	}

	cmd.Flags().StringP("content", "c", "", "Note content")
	cmd.Flags().StringP("folder", "f", "", "Folder path, e.g. work/projects")
	flags.AddPaste(cmd)
	flags.AddJSON(cmd)
	return cmd
}

func runNew(cmd *cobra.Command, s *state.State, title string) error {
	content, _ := cmd.Flags().GetString("content")
	folder, _ := cmd.Flags().GetString("folder")

	pasted, ok, err := flags.HandlePaste(cmd)
	if err != nil {
		return err
	}
	if ok {
		content = pasted
	}

	n, err := s.Notes.Create(cmd.Context(), s.Config.Owner, note.Draft{
		Title:   title,
		Content: content,
		Folder:  folder,
	})
	if err != nil {
		return err
	}

	if flags.HandleJSON(cmd) {
		return output.PrintJSON(cmd.OutOrStdout(), n)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", n.Title, n.ID)
	return nil
}
