package hypergraph

import "math/rand/v2"

// Level is one step of a coarsening hierarchy. Map sends every node of the
// finer graph to its node in Graph.
type Level struct {
	Graph *Graph
	Map   []int
}

// CoarsenOptions bounds the hierarchy.
type CoarsenOptions struct {
	// Threshold stops coarsening once the graph has at most this many nodes.
	Threshold int
	// MaxNodeWeight caps the weight of a merged node. Zero means no cap.
	MaxNodeWeight int
	// MaxLevels caps the number of levels. Zero means no cap.
	MaxLevels int
}

// minShrink is the minimum fraction of nodes a level must remove; below it
// coarsening has stalled.
const minShrink = 0.05

// Coarsen builds a hierarchy by repeated heavy-edge matching. The first
// level's Map refers to g itself. The returned slice is empty when g is
// already at or below the threshold.
func Coarsen(g *Graph, rng *rand.Rand, opts CoarsenOptions) []Level {
	threshold := max(opts.Threshold, 2)
	var levels []Level
	cur := g
	for cur.Len() > threshold {
		if opts.MaxLevels > 0 && len(levels) >= opts.MaxLevels {
			break
		}
		mapping, k := Match(cur, rng, opts.MaxNodeWeight)
		if float64(cur.Len()-k) < minShrink*float64(cur.Len()) {
			break
		}
		next := cur.Contract(mapping, k)
		levels = append(levels, Level{Graph: next, Map: mapping})
		cur = next
	}
	return levels
}

// Match pairs every node with its unmatched neighbor of highest connectivity,
// visiting nodes in a seeded random order. Ties prefer the lower node index.
// It returns the fine-to-coarse mapping and the number of coarse nodes.
func Match(g *Graph, rng *rand.Rand, maxWeight int) ([]int, int) {
	n := g.Len()
	mapping := make([]int, n)
	for i := range mapping {
		mapping[i] = -1
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	k := 0
	for _, v := range order {
		if mapping[v] >= 0 {
			continue
		}
		best, bestW := -1, 0.0
		for u, w := range g.Connectivity(v) {
			if mapping[u] >= 0 {
				continue
			}
			if maxWeight > 0 && g.Weights[u]+g.Weights[v] > maxWeight {
				continue
			}
			if w > bestW || (w == bestW && u < best) {
				best, bestW = u, w
			}
		}
		mapping[v] = k
		if best >= 0 {
			mapping[best] = k
		}
		k++
	}
	return mapping, k
}

// Project maps a per-node value of a coarse graph back onto the finer graph.
func Project[T any](coarse []T, mapping []int) []T {
	fine := make([]T, len(mapping))
	for v, cv := range mapping {
		fine[v] = coarse[cv]
	}
	return fine
}
