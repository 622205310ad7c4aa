package notes

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/render"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/flags"
	"github.com/Paintersrp/weave/pkg/shared/output"
)

type shownNote struct {
	note.Note
	Backlinks []note.Ref `json:"backlinks"`
}

func newCmdShow(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "show [id|title]",
		Aliases: []string{"cat", "s"},
		Short:   "Render a note in the terminal.",
		Long: heredoc.Doc(`
			Renders the note as markdown, followed by the notes linking to it.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := s.Notes.Resolve(cmd.Context(), s.Config.Owner, args[0])
			if err != nil {
				return err
			}
			return show(cmd, s, n.ID)
		},
	}

	cmd.Flags().Bool("raw", false, "Print the raw markdown")
	flags.AddJSON(cmd)
	return cmd
}

func show(cmd *cobra.Command, s *state.State, id string) error {
	n, refs, err := s.Notes.GetWithBacklinks(cmd.Context(), s.Config.Owner, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.HandleJSON(cmd) {
		return output.PrintJSON(out, shownNote{Note: n, Backlinks: refs})
	}

	body := "# " + n.Title + "\n\n" + n.Content
	if raw, _ := cmd.Flags().GetBool("raw"); !raw {
		body, err = render.Terminal(body, output.Width(out), output.GlamourStyle(out))
		if err != nil {
			return err
		}
	}

	styles := output.NewStyles(output.Renderer(out))
	folder := n.Folder
	if folder == "" {
		folder = note.RootFolder
	}

	fmt.Fprintln(out, strings.TrimRight(body, "\n"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf(
		"%s · %s · %d words · updated %s",
		n.ID, folder, note.WordCount(n.Content), n.UpdatedAt.Local().Format("2006-01-02 15:04"),
	)))
	if len(refs) > 0 {
		fmt.Fprintln(out, styles.Title.Render("Linked from"))
		for _, r := range refs {
			fmt.Fprintf(out, "  %s %s\n", r.Title, styles.Muted.Render(r.ID))
		}
	}
	return nil
}
