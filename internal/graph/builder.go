package graph

import (
	"github.com/Paintersrp/weave/internal/links"
	"github.com/Paintersrp/weave/internal/note"
)

// Build resolves every note's links against the titles in notes and returns
// the nodes and edges. Edges are collected in a first pass and counts are
// finalized afterwards, so a node's incoming count includes links from notes
// that come after it. Stats and positions are left zero.
func Build(notes []note.Note, opts Options) Graph {
	opts = opts.withDefaults()

	titleToID := make(map[string]string, len(notes))
	for _, n := range notes {
		// Later notes overwrite earlier ones on a title collision.
		titleToID[note.TitleKey(n.Title)] = n.ID
	}

	incoming := make(map[string]int, len(notes))
	outgoing := make(map[string]int, len(notes))
	seen := make(map[[2]string]struct{})
	edges := make([]Edge, 0)

	for _, n := range notes {
		for _, title := range links.Extract(n.Content) {
			target, ok := titleToID[note.TitleKey(title)]
			if !ok || target == n.ID {
				continue
			}
			pair := [2]string{n.ID, target}
			if _, dup := seen[pair]; dup {
				continue
			}
			seen[pair] = struct{}{}

			edges = append(edges, Edge{
				ID:     n.ID + "-" + target,
				Source: n.ID,
				Target: target,
			})
			outgoing[n.ID]++
			incoming[target]++
		}
	}

	nodes := make([]Node, 0, len(notes))
	for _, n := range notes {
		in, out := incoming[n.ID], outgoing[n.ID]
		connections := in + out
		nodes = append(nodes, Node{
			ID:          n.ID,
			Title:       n.Title,
			Folder:      n.Folder,
			WordCount:   note.WordCount(n.Content),
			CreatedAt:   n.CreatedAt,
			UpdatedAt:   n.UpdatedAt,
			Connections: connections,
			Incoming:    in,
			Outgoing:    out,
			Size:        nodeSize(connections),
			Class:       classify(connections, opts),
			Color:       opts.Palette.Color(n.Folder, connections, opts),
		})
	}

	return Graph{Nodes: nodes, Edges: edges}
}

func nodeSize(connections int) int {
	return min(MaxNodeSize, max(MinNodeSize, MinNodeSize+connections*NodeSizePerDegree))
}

func classify(connections int, opts Options) Class {
	switch {
	case connections >= opts.HubThreshold:
		return ClassHub
	case connections >= opts.ConnectedThreshold:
		return ClassConnected
	default:
		return ClassIsolated
	}
}
