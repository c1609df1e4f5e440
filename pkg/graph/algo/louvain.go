package algo

import (
	"math/rand"
	"slices"

	"vantage/pkg/graph"
)

// DefaultSeed is the PRNG seed used when callers do not ask for a specific
// one. Runs with equal seeds over equal graphs produce identical output.
const DefaultSeed int64 = 42

// Community is one detected module: an index and its sorted members.
type Community struct {
	ID      int      `json:"id"`
	Members []string `json:"members"`
}

// CommunityResult carries the final partition and its modularity score.
type CommunityResult struct {
	Communities []Community `json:"communities"`
	Modularity  float64     `json:"modularity"`
}

// Communities partitions the graph with Louvain-style greedy modularity
// maximisation over the undirected, de-duplicated edge set. Node visit
// order inside a pass is shuffled by the seeded PRNG; when two moves tie
// on gain the smaller community index wins. Passes aggregate communities
// into super-nodes until no move improves modularity.
func Communities(g *graph.Graph, seed int64, types []string) CommunityResult {
	keys := g.ComponentKeys()
	if len(keys) == 0 {
		return CommunityResult{}
	}

	// undirected weighted adjacency; parallel and reverse edges merge
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	weights := make([]map[int]float64, len(keys))
	for i := range weights {
		weights[i] = make(map[int]float64)
	}
	out, _ := g.Adjacency(types)
	for src, targets := range out {
		for _, dst := range targets {
			a, b := idx[src], idx[dst]
			if a == b {
				weights[a][a]++
				continue
			}
			if _, back := weights[a][b]; !back {
				weights[a][b] = 1
				weights[b][a] = 1
			}
		}
	}

	// level 0: every node its own community; track which original nodes
	// each current super-node stands for
	groups := make([][]int, len(keys))
	for i := range groups {
		groups[i] = []int{i}
	}

	rng := rand.New(rand.NewSource(seed))

	for {
		comm, improved := louvainPass(weights, rng)
		if !improved {
			break
		}
		weights, groups = aggregate(weights, groups, comm)
	}

	result := CommunityResult{Modularity: modularity(weights)}
	for id, members := range groups {
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = keys[m]
		}
		slices.Sort(names)
		result.Communities = append(result.Communities, Community{ID: id, Members: names})
	}
	slices.SortFunc(result.Communities, func(a, b Community) int {
		if a.Members[0] < b.Members[0] {
			return -1
		}
		if a.Members[0] > b.Members[0] {
			return 1
		}
		return 0
	})
	for i := range result.Communities {
		result.Communities[i].ID = i
	}
	return result
}

// louvainPass runs one local-moving phase. It returns the community of
// each node and whether any move improved modularity.
func louvainPass(weights []map[int]float64, rng *rand.Rand) ([]int, bool) {
	n := len(weights)
	comm := make([]int, n)
	degree := make([]float64, n)
	commTotal := make([]float64, n)
	var m2 float64 // sum of all degrees (2m)

	for i := range weights {
		comm[i] = i
		for j, w := range weights[i] {
			degree[i] += w
			if i == j {
				degree[i] += w // self loop counts twice
			}
		}
		commTotal[i] = degree[i]
		m2 += degree[i]
	}
	if m2 == 0 {
		return comm, false
	}

	order := rng.Perm(n)
	improved := false

	for changed := true; changed; {
		changed = false
		for _, v := range order {
			// weight from v to each neighbouring community
			toComm := make(map[int]float64)
			for u, w := range weights[v] {
				if u != v {
					toComm[comm[u]] += w
				}
			}

			cur := comm[v]
			commTotal[cur] -= degree[v]

			best, bestGain := cur, toComm[cur]-commTotal[cur]*degree[v]/m2
			for c, w := range toComm {
				gain := w - commTotal[c]*degree[v]/m2
				if gain > bestGain || (gain == bestGain && c < best) {
					best, bestGain = c, gain
				}
			}

			commTotal[best] += degree[v]
			if best != cur {
				comm[v] = best
				changed = true
				improved = true
			}
		}
	}

	return comm, improved
}

// aggregate collapses communities into super-nodes, merging edge weights
// and concatenating the original-node groups.
func aggregate(weights []map[int]float64, groups [][]int, comm []int) ([]map[int]float64, [][]int) {
	renumber := make(map[int]int)
	for _, c := range comm {
		if _, ok := renumber[c]; !ok {
			renumber[c] = len(renumber)
		}
	}

	newWeights := make([]map[int]float64, len(renumber))
	newGroups := make([][]int, len(renumber))
	for i := range newWeights {
		newWeights[i] = make(map[int]float64)
	}

	for v, ws := range weights {
		cv := renumber[comm[v]]
		newGroups[cv] = append(newGroups[cv], groups[v]...)
		for u, w := range ws {
			cu := renumber[comm[u]]
			if v == u || (cv == cu && v > u) {
				// count intra-community pairs once
				if v == u {
					newWeights[cv][cv] += w
				}
				continue
			}
			if cv == cu {
				newWeights[cv][cv] += w
			} else {
				newWeights[cv][cu] += w
			}
		}
	}

	return newWeights, newGroups
}

// modularity computes Q for the partition where every current super-node
// is one community.
func modularity(weights []map[int]float64) float64 {
	var m2 float64
	degree := make([]float64, len(weights))
	for i := range weights {
		for j, w := range weights[i] {
			degree[i] += w
			if i == j {
				degree[i] += w
			}
		}
		m2 += degree[i]
	}
	if m2 == 0 {
		return 0
	}

	var q float64
	for i := range weights {
		q += weights[i][i]*2/m2 - (degree[i]/m2)*(degree[i]/m2)
	}
	return q
}
