package graph

import "math"

// Canvas positions the layout.
type Canvas struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

// DefaultCanvas centers the layout at (400, 300) with a base radius of 200.
func DefaultCanvas() Canvas {
	return Canvas{CenterX: 400, CenterY: 300, Radius: 200}
}

// Cluster radius bounds and per-member growth.
const (
	minClusterRadius       = 50
	maxClusterRadius       = 150
	clusterRadiusPerMember = 20
	outerRingFactor        = 1.5
)

// Layout assigns a position to every node in place. Connected components are
// discovered by BFS over the undirected edges in node order. Singletons go on
// an outer ring at an angle given by their node index; larger components are
// clustered around points on the base circle. The result depends only on the
// node and edge order.
func Layout(nodes []Node, edges []Edge, c Canvas) {
	switch len(nodes) {
	case 0:
		return
	case 1:
		nodes[0].Position = Position{X: c.CenterX, Y: c.CenterY}
		return
	}

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
	}
	adjacency := make([][]int, len(nodes))
	linked := make(map[[2]int]struct{}, len(edges))
	for _, e := range edges {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if !okS || !okT || s == t {
			continue
		}
		pair := [2]int{min(s, t), max(s, t)}
		if _, ok := linked[pair]; ok {
			continue
		}
		linked[pair] = struct{}{}
		adjacency[s] = append(adjacency[s], t)
		adjacency[t] = append(adjacency[t], s)
	}

	total := float64(len(nodes))
	positioned := make([]bool, len(nodes))
	componentIndex := 0

	for i := range nodes {
		if positioned[i] {
			continue
		}
		component := bfs(i, adjacency)

		if len(component) == 1 {
			angle := 2 * math.Pi * float64(i) / total
			nodes[i].Position = polar(c.CenterX, c.CenterY, c.Radius*outerRingFactor, angle)
			positioned[i] = true
			continue
		}

		clusterAngle := 2 * math.Pi * float64(componentIndex) / math.Max(1, total/4)
		center := polar(c.CenterX, c.CenterY, c.Radius, clusterAngle)
		radius := math.Min(maxClusterRadius, math.Max(minClusterRadius, float64(len(component)*clusterRadiusPerMember)))
		size := float64(len(component))

		for j, member := range component {
			angle := 2 * math.Pi * float64(j) / size
			nodes[member].Position = polar(center.X, center.Y, radius, angle)
			positioned[member] = true
		}
		componentIndex++
	}
}

// bfs returns the component containing start in visit order.
func bfs(start int, adjacency [][]int) []int {
	visited := map[int]bool{start: true}
	queue := []int{start}
	var component []int
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		component = append(component, cur)
		for _, next := range adjacency[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return component
}

func polar(cx, cy, r, angle float64) Position {
	return Position{X: cx + r*math.Cos(angle), Y: cy + r*math.Sin(angle)}
}
