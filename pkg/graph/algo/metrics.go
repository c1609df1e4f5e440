package algo

import (
	"math"

	"vantage/pkg/graph"
)

// Power-iteration bounds for eigenvector centrality.
const (
	EigenIterations = 100  // maximum iterations before giving up on convergence
	EigenTolerance  = 1e-9 // L1 change under which iteration stops
)

// NodeMetrics holds the per-component structural metrics.
type NodeMetrics struct {
	FanIn            int     `json:"fan_in"`
	FanOut           int     `json:"fan_out"`
	Instability      float64 `json:"instability"`
	DegreeCentrality float64 `json:"degree_centrality"`
	Betweenness      float64 `json:"betweenness"`
	Closeness        float64 `json:"closeness"`
	Eigenvector      float64 `json:"eigenvector"`
}

// Metrics computes structural metrics for every component over the
// de-duplicated adjacency:
//
//   - FanIn / FanOut count distinct dependents and dependencies.
//   - Instability is FanOut/(FanIn+FanOut); an isolated node scores 0.
//   - DegreeCentrality is (FanIn+FanOut)/(2(n-1)); 0 when n <= 1.
//   - Betweenness is Brandes' shortest-path betweenness on the directed
//     graph, normalized by (n-1)(n-2); 0 when n < 3.
//   - Closeness is reachable/sumDistances over the node's outgoing BFS
//     tree; 0 when nothing is reachable.
//   - Eigenvector is power iteration over incoming edges with a uniform
//     start and L2 normalization each step.
func Metrics(g *graph.Graph, types []string) map[string]NodeMetrics {
	keys := g.ComponentKeys()
	out, in := g.Adjacency(types)
	n := len(keys)

	metrics := make(map[string]NodeMetrics, n)
	for _, k := range keys {
		fanIn, fanOut := len(in[k]), len(out[k])
		m := NodeMetrics{FanIn: fanIn, FanOut: fanOut}
		if fanIn+fanOut > 0 {
			m.Instability = float64(fanOut) / float64(fanIn+fanOut)
		}
		if n > 1 {
			m.DegreeCentrality = float64(fanIn+fanOut) / float64(2*(n-1))
		}
		metrics[k] = m
	}

	between := betweenness(keys, out)
	closeness := closenessAll(keys, out)
	eigen := eigenvector(keys, in)
	for _, k := range keys {
		m := metrics[k]
		m.Betweenness = between[k]
		m.Closeness = closeness[k]
		m.Eigenvector = eigen[k]
		metrics[k] = m
	}

	return metrics
}

// betweenness implements Brandes' accumulation over BFS shortest paths.
func betweenness(keys []string, out map[string][]string) map[string]float64 {
	n := len(keys)
	cb := make(map[string]float64, n)
	for _, k := range keys {
		cb[k] = 0
	}
	if n < 3 {
		return cb
	}

	for _, s := range keys {
		var stack []string
		pred := make(map[string][]string)
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}

		queue := []string{s}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range out[v] {
				if _, seen := dist[w]; !seen {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := make(map[string]float64)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	norm := float64((n - 1) * (n - 2))
	for k := range cb {
		cb[k] /= norm
	}
	return cb
}

func closenessAll(keys []string, out map[string][]string) map[string]float64 {
	result := make(map[string]float64, len(keys))
	for _, s := range keys {
		dist := map[string]int{s: 0}
		queue := []string{s}
		sum, reached := 0, 0
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range out[v] {
				if _, seen := dist[w]; seen {
					continue
				}
				dist[w] = dist[v] + 1
				sum += dist[w]
				reached++
				queue = append(queue, w)
			}
		}
		if sum > 0 {
			result[s] = float64(reached) / float64(sum)
		}
	}
	return result
}

func eigenvector(keys []string, in map[string][]string) map[string]float64 {
	n := len(keys)
	result := make(map[string]float64, n)
	if n == 0 {
		return result
	}

	x := make(map[string]float64, n)
	for _, k := range keys {
		x[k] = 1 / math.Sqrt(float64(n))
	}

	for range EigenIterations {
		next := make(map[string]float64, n)
		var norm float64
		for _, k := range keys {
			var sum float64
			for _, src := range in[k] {
				sum += x[src]
			}
			next[k] = sum
			norm += sum * sum
		}
		if norm == 0 {
			// no edges to propagate over
			for _, k := range keys {
				result[k] = 0
			}
			return result
		}
		norm = math.Sqrt(norm)
		var change float64
		for _, k := range keys {
			next[k] /= norm
			change += math.Abs(next[k] - x[k])
		}
		x = next
		if change < EigenTolerance {
			break
		}
	}

	for _, k := range keys {
		result[k] = x[k]
	}
	return result
}
