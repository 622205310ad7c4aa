package graph

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Paintersrp/weave/internal/note"
)

var created = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)

func mk(id, title, folder, content string, minute int) note.Note {
	at := created.Add(time.Duration(minute) * time.Minute)
	return note.Note{ID: id, Owner: "u1", Title: title, Folder: folder, Content: content, CreatedAt: at, UpdatedAt: at}
}

func nodeByID(t *testing.T, g Graph, id string) Node {
	t.Helper()
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return Node{}
}

func TestComposeTriangleStatistics(t *testing.T) {
	t.Parallel()

	g := Compose([]note.Note{
		mk("a", "A", "", "to [[B]]", 0),
		mk("b", "B", "", "to [[C]]", 1),
		mk("c", "C", "", "to [[A]]", 2),
	}, DefaultOptions())

	want := Stats{
		TotalNotes:         3,
		TotalEdges:         3,
		AvgConnections:     2,
		MaxConnections:     2,
		IsolatedNotes:      0,
		HubNotes:           0,
		FolderDistribution: map[string]int{"root": 3},
	}
	if !reflect.DeepEqual(g.Stats, want) {
		t.Fatalf("unexpected stats:\n got %+v\nwant %+v", g.Stats, want)
	}

	for _, n := range g.Nodes {
		if n.Incoming != 1 || n.Outgoing != 1 || n.Connections != 2 {
			t.Fatalf("node %s has counts in=%d out=%d total=%d", n.ID, n.Incoming, n.Outgoing, n.Connections)
		}
		if n.Class != ClassConnected || n.Size != 56 || n.Color != "#6b728080" {
			t.Fatalf("node %s has class=%s size=%d color=%s", n.ID, n.Class, n.Size, n.Color)
		}
	}

	edgeIDs := []string{g.Edges[0].ID, g.Edges[1].ID, g.Edges[2].ID}
	if !reflect.DeepEqual(edgeIDs, []string{"a-b", "b-c", "c-a"}) {
		t.Fatalf("unexpected edges: %v", edgeIDs)
	}
}

func TestComposeIsolatedNote(t *testing.T) {
	t.Parallel()

	g := Compose([]note.Note{
		mk("a", "A", "work", "to [[B]]", 0),
		mk("b", "B", "work", "", 1),
		mk("lonely", "Lonely", "ideas/raw", "nothing here", 2),
	}, DefaultOptions())

	lonely := nodeByID(t, g, "lonely")
	if lonely.Connections != 0 || lonely.Class != ClassIsolated || lonely.Size != MinNodeSize {
		t.Fatalf("unexpected isolated node: %+v", lonely)
	}
	if lonely.Color != "#ec489940" {
		t.Fatalf("unexpected isolated color: %s", lonely.Color)
	}

	// Index 2 of 3 nodes on the outer ring.
	angle := 2 * math.Pi * 2 / 3
	wantX := 400 + 300*math.Cos(angle)
	wantY := 300 + 300*math.Sin(angle)
	if !near(lonely.Position.X, wantX) || !near(lonely.Position.Y, wantY) {
		t.Fatalf("isolated node at %+v, want (%f, %f)", lonely.Position, wantX, wantY)
	}
	if got := math.Hypot(lonely.Position.X-400, lonely.Position.Y-300); !near(got, 300) {
		t.Fatalf("isolated node not on the outer ring: distance %f", got)
	}

	if g.Stats.IsolatedNotes != 1 {
		t.Fatalf("unexpected isolated count: %d", g.Stats.IsolatedNotes)
	}
	if !reflect.DeepEqual(g.Stats.FolderDistribution, map[string]int{"work": 2, "ideas/raw": 1}) {
		t.Fatalf("unexpected folder distribution: %v", g.Stats.FolderDistribution)
	}
}

func TestBuildExcludesSelfLinksAndUnresolvedTitles(t *testing.T) {
	t.Parallel()

	g := Build([]note.Note{
		mk("a", "Alpha", "", "[[alpha]] [[Missing]] [[]]", 0),
	}, DefaultOptions())

	if len(g.Edges) != 0 {
		t.Fatalf("expected no edges, got %v", g.Edges)
	}
	if n := g.Nodes[0]; n.Connections != 0 || n.Outgoing != 0 {
		t.Fatalf("self link counted: %+v", n)
	}
}

func TestBuildCountsIncomingFromLaterNotes(t *testing.T) {
	t.Parallel()

	g := Build([]note.Note{
		mk("first", "First", "", "", 0),
		mk("second", "Second", "", "[[First]]", 1),
	}, DefaultOptions())

	first := nodeByID(t, g, "first")
	if first.Incoming != 1 || first.Connections != 1 {
		t.Fatalf("incoming link from a later note was missed: %+v", first)
	}
}

func TestBuildDeduplicatesEdgesAndResolvesNewestDuplicateTitle(t *testing.T) {
	t.Parallel()

	g := Build([]note.Note{
		mk("old", "Topic", "", "", 0),
		mk("new", "topic", "", "", 1),
		mk("src", "Source", "", "[[Topic]] [[TOPIC]] [[topic]]", 2),
	}, DefaultOptions())

	if len(g.Edges) != 1 || g.Edges[0] != (Edge{ID: "src-new", Source: "src", Target: "new"}) {
		t.Fatalf("unexpected edges: %v", g.Edges)
	}
	if src := nodeByID(t, g, "src"); src.Outgoing != 1 {
		t.Fatalf("duplicate edges counted: %+v", src)
	}
}

func TestHubClassification(t *testing.T) {
	t.Parallel()

	notes := []note.Note{mk("hub", "Hub", "Projects/x", "", 0)}
	for i, id := range []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11"} {
		notes = append(notes, mk(id, id, "", "[[Hub]]", i+1))
	}
	g := Compose(notes, DefaultOptions())

	hub := nodeByID(t, g, "hub")
	if hub.Class != ClassHub || hub.Connections != 11 {
		t.Fatalf("unexpected hub: %+v", hub)
	}
	if hub.Size != MaxNodeSize {
		t.Fatalf("hub size not clamped: %d", hub.Size)
	}
	if hub.Color != "#8b5cf6" {
		t.Fatalf("unexpected hub color: %s", hub.Color)
	}
	if g.Stats.HubNotes != 1 || g.Stats.MaxConnections != 11 {
		t.Fatalf("unexpected stats: %+v", g.Stats)
	}
	if g.Stats.AvgConnections != 1.83 {
		t.Fatalf("average not rounded to two decimals: %v", g.Stats.AvgConnections)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	stats := Summarize(nil, nil, DefaultOptions())
	if stats.TotalNotes != 0 || stats.AvgConnections != 0 || stats.MaxConnections != 0 {
		t.Fatalf("unexpected empty stats: %+v", stats)
	}
	if stats.FolderDistribution == nil {
		t.Fatalf("folder distribution should be an empty map")
	}
}

func TestPaletteBase(t *testing.T) {
	t.Parallel()

	p := DefaultPalette()
	cases := map[string]string{
		"":              "#6b7280",
		"Work":          "#3b82f6",
		"personal/a/b":  "#10b981",
		"RESEARCH/2024": "#f59e0b",
		"misc":          "#6b7280",
		"workshop":      "#6b7280",
	}
	for folder, want := range cases {
		if got := p.Base(folder); got != want {
			t.Fatalf("Base(%q) = %s, want %s", folder, got, want)
		}
	}
}

func TestLayoutSingleNodeAtCenter(t *testing.T) {
	t.Parallel()

	g := Compose([]note.Note{mk("a", "A", "", "", 0)}, DefaultOptions())
	if g.Nodes[0].Position != (Position{X: 400, Y: 300}) {
		t.Fatalf("single node not centered: %+v", g.Nodes[0].Position)
	}

	Layout(nil, nil, DefaultCanvas())
}

func TestLayoutClustersComponents(t *testing.T) {
	t.Parallel()

	notes := []note.Note{
		mk("a", "A", "", "[[B]]", 0),
		mk("b", "B", "", "", 1),
		mk("c", "C", "", "[[D]] [[E]]", 2),
		mk("d", "D", "", "", 3),
		mk("e", "E", "", "", 4),
		mk("f", "F", "", "", 5),
	}
	g := Compose(notes, DefaultOptions())

	// First cluster: component index 0 on the base circle, radius clamp(2*20).
	a, b := nodeByID(t, g, "a"), nodeByID(t, g, "b")
	if !near(a.Position.X, 600+50) || !near(a.Position.Y, 300) {
		t.Fatalf("unexpected position for a: %+v", a.Position)
	}
	if !near(b.Position.X, 600-50) || !near(b.Position.Y, 300) {
		t.Fatalf("unexpected position for b: %+v", b.Position)
	}

	// Second cluster: index 1 of max(1, 6/4) gives angle 2π/1.5.
	angle := 2 * math.Pi / 1.5
	cx, cy := 400+200*math.Cos(angle), 300+200*math.Sin(angle)
	c := nodeByID(t, g, "c")
	if !near(c.Position.X, cx+60) || !near(c.Position.Y, cy) {
		t.Fatalf("unexpected position for c: %+v", c.Position)
	}
	d := nodeByID(t, g, "d")
	if got := math.Hypot(d.Position.X-cx, d.Position.Y-cy); !near(got, 60) {
		t.Fatalf("d not on its cluster ring: %f", got)
	}
}

func TestLayoutIsDeterministic(t *testing.T) {
	t.Parallel()

	notes := []note.Note{
		mk("a", "A", "", "[[B]] [[C]]", 0),
		mk("b", "B", "", "[[C]]", 1),
		mk("c", "C", "", "", 2),
		mk("d", "D", "", "[[E]]", 3),
		mk("e", "E", "", "", 4),
		mk("f", "F", "", "", 5),
		mk("g", "G", "", "[[A]]", 6),
	}
	first := Compose(notes, DefaultOptions())
	for i := 0; i < 10; i++ {
		again := Compose(notes, DefaultOptions())
		if !reflect.DeepEqual(first.Nodes, again.Nodes) {
			t.Fatalf("layout changed between identical runs")
		}
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
