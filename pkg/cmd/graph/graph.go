package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	linkgraph "github.com/Paintersrp/weave/internal/graph"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/shared/flags"
	"github.com/Paintersrp/weave/pkg/shared/output"
)

func NewCmdGraph(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "graph",
		Aliases: []string{"g"},
		Short:   "Summarize the link graph.",
		Long: heredoc.Doc(`
			Builds the link graph from note content and prints its statistics
			and most connected notes. --json prints the full graph, including
			node positions, as served by GET /api/graph.
		`),
		Example: heredoc.Doc(`
			weave graph
			weave graph --folder research --top 5
			weave graph --folder root --json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s)
		},
	}

	flags.AddFolder(cmd, "Limit the graph to a folder: all, root or a folder path")
	flags.AddJSON(cmd)
	cmd.Flags().Int("top", 10, "Number of most connected notes to list")
	return cmd
}

func run(cmd *cobra.Command, s *state.State) error {
	scope := flags.HandleScope(cmd)
	g, err := s.Notes.Graph(cmd.Context(), s.Config.Owner, scope)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flags.HandleJSON(cmd) {
		return output.PrintJSON(out, g)
	}

	top, _ := cmd.Flags().GetInt("top")
	render(out, scope.String(), g, top)
	return nil
}

func render(w io.Writer, scope string, g linkgraph.Graph, top int) {
	styles := output.NewStyles(output.Renderer(w))

	row := func(label string, value any) string {
		return lipgloss.JoinHorizontal(lipgloss.Top,
			styles.Label.Render(label),
			styles.Value.Render(fmt.Sprint(value)),
		)
	}

	st := g.Stats
	rows := []string{
		styles.Title.Render("Graph · " + scope),
		"",
		row("Notes", st.TotalNotes),
		row("Connections", st.TotalEdges),
		row("Avg connections", fmt.Sprintf("%.2f", st.AvgConnections)),
		row("Max connections", st.MaxConnections),
		row("Isolated", st.IsolatedNotes),
		row("Hubs", st.HubNotes),
	}

	if len(st.FolderDistribution) > 0 {
		rows = append(rows, "", styles.Title.Render("Folders"))
		folders := make([]string, 0, len(st.FolderDistribution))
		for f := range st.FolderDistribution {
			folders = append(folders, f)
		}
		sort.Strings(folders)
		for _, f := range folders {
			rows = append(rows, row(f, st.FolderDistribution[f]))
		}
	}

	if ranked := mostConnected(g.Nodes, top); len(ranked) > 0 {
		rows = append(rows, "", styles.Title.Render("Most connected"))
		for _, n := range ranked {
			line := fmt.Sprintf("%-3d %s", n.Connections, n.Title)
			if n.Class == linkgraph.ClassHub {
				line = styles.Hub.Render(line + " (hub)")
			}
			rows = append(rows, line+" "+styles.Muted.Render(fmt.Sprintf("in %d / out %d", n.Incoming, n.Outgoing)))
		}
	}

	fmt.Fprintln(w, styles.Box.Render(strings.Join(rows, "\n")))
}

func mostConnected(nodes []linkgraph.Node, top int) []linkgraph.Node {
	if top <= 0 {
		return nil
	}
	ranked := make([]linkgraph.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Connections > 0 {
			ranked = append(ranked, n)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Connections > ranked[j].Connections
	})
	if len(ranked) > top {
		ranked = ranked[:top]
	}
	return ranked
}
