// Package graph derives the visual note graph: nodes and directed edges
// built from note text, aggregate statistics and a deterministic 2-D layout.
// Nothing here is persisted; every read recomputes the graph.
package graph

import (
	"time"

	"github.com/Paintersrp/weave/internal/note"
)

// Class buckets a node by how connected it is.
type Class string

const (
	ClassHub       Class = "hub"
	ClassConnected Class = "connected"
	ClassIsolated  Class = "isolated"
)

// Size bounds, in canvas units.
const (
	MinNodeSize       = 40
	MaxNodeSize       = 120
	NodeSizePerDegree = 8
)

// Default classification thresholds. HubThreshold drives node class, color
// intensity and the hub statistic alike.
const (
	HubThreshold       = 5
	ConnectedThreshold = 2
)

// Position is a point on the layout canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one note in the graph.
type Node struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Folder      string    `json:"folder,omitempty"`
	WordCount   int       `json:"wordCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Connections int       `json:"connections"`
	Incoming    int       `json:"incomingConnections"`
	Outgoing    int       `json:"outgoingConnections"`
	Size        int       `json:"size"`
	Class       Class     `json:"class"`
	Color       string    `json:"color"`
	Position    Position  `json:"position"`
}

// Edge is a directed link from the note holding [[Title]] to the note it
// names.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Stats summarizes a graph.
type Stats struct {
	TotalNotes         int            `json:"totalNotes"`
	TotalEdges         int            `json:"totalConnections"`
	AvgConnections     float64        `json:"avgConnections"`
	MaxConnections     int            `json:"maxConnections"`
	IsolatedNotes      int            `json:"isolatedNodes"`
	HubNotes           int            `json:"hubNodes"`
	FolderDistribution map[string]int `json:"folderDistribution"`
}

// Graph is the full result of a graph read.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
	Stats Stats  `json:"stats"`
}

// Options tunes classification, coloring and layout.
type Options struct {
	HubThreshold       int
	ConnectedThreshold int
	Palette            Palette
	Canvas             Canvas
}

// DefaultOptions returns the stock thresholds, palette and canvas.
func DefaultOptions() Options {
	return Options{
		HubThreshold:       HubThreshold,
		ConnectedThreshold: ConnectedThreshold,
		Palette:            DefaultPalette(),
		Canvas:             DefaultCanvas(),
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.HubThreshold <= 0 {
		o.HubThreshold = def.HubThreshold
	}
	if o.ConnectedThreshold <= 0 {
		o.ConnectedThreshold = def.ConnectedThreshold
	}
	if o.Palette.Folders == nil && o.Palette.Default == "" {
		o.Palette = def.Palette
	}
	if o.Palette.Default == "" {
		o.Palette.Default = def.Palette.Default
	}
	if o.Canvas.Radius <= 0 {
		o.Canvas = def.Canvas
	}
	return o
}

// Compose builds the graph for notes, then summarizes and lays it out. notes
// should be ordered by creation time ascending; the order decides duplicate
// title resolution and layout placement.
func Compose(notes []note.Note, opts Options) Graph {
	opts = opts.withDefaults()
	g := Build(notes, opts)
	g.Stats = Summarize(g.Nodes, g.Edges, opts)
	Layout(g.Nodes, g.Edges, opts.Canvas)
	return g
}
