package graph

import (
	"math"

	"github.com/Paintersrp/weave/internal/note"
)

// Summarize computes aggregate statistics over built nodes and edges.
func Summarize(nodes []Node, edges []Edge, opts Options) Stats {
	opts = opts.withDefaults()

	stats := Stats{
		TotalNotes:         len(nodes),
		TotalEdges:         len(edges),
		FolderDistribution: make(map[string]int),
	}
	if len(nodes) == 0 {
		return stats
	}

	total := 0
	for _, n := range nodes {
		total += n.Connections
		stats.MaxConnections = max(stats.MaxConnections, n.Connections)
		if n.Connections == 0 {
			stats.IsolatedNotes++
		}
		if n.Connections >= opts.HubThreshold {
			stats.HubNotes++
		}

		folder := n.Folder
		if folder == "" {
			folder = note.RootFolder
		}
		stats.FolderDistribution[folder]++
	}
	stats.AvgConnections = math.Round(float64(total)/float64(len(nodes))*100) / 100
	return stats
}
