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

func newCmdList(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "List notes.",
		Example: heredoc.Doc(`
			weave notes list --folder work --sort title --order asc
			weave notes list --folder root --since "2024-03-01"
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, s)
		},
	}

	flags.AddFolder(cmd, "Folder scope: all, root or a folder path")
	flags.AddSince(cmd)
	flags.AddJSON(cmd)
	cmd.Flags().String("sort", string(note.SortUpdated), "Sort by updatedAt, createdAt or title")
	cmd.Flags().String("order", "desc", "Sort order: asc or desc")
	return cmd
}

func runList(cmd *cobra.Command, s *state.State) error {
	sortBy, _ := cmd.Flags().GetString("sort")
	order, _ := cmd.Flags().GetString("order")
	sorting, err := note.ParseSort(sortBy, order)
	if err != nil {
		return err
	}
	since, err := flags.HandleSince(cmd)
	if err != nil {
		return err
	}

	list, err := s.Notes.List(cmd.Context(), note.Filter{
		Owner:        s.Config.Owner,
		Scope:        flags.HandleScope(cmd),
		UpdatedSince: since,
		Sort:         sorting,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.HandleJSON(cmd) {
		return output.PrintJSON(out, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No notes.")
		return nil
	}

	styles := output.NewStyles(output.Renderer(out))
	for _, n := range list {
		folder := n.Folder
		if folder == "" {
			folder = note.RootFolder
		}
		fmt.Fprintf(out, "%s  %s  %s\n",
			styles.Muted.Render(n.ID),
			n.Title,
			styles.Muted.Render("["+folder+"]"),
		)
	}
	return nil
}
