package cluster

import (
	"math"
)

// newmanStrategy is greedy modularity agglomeration: every bus starts as
// its own community and the merge with the largest modularity gain is
// applied until exactly k communities remain. Edge weights are the
// electrical strength of a corridor, thermal rating over reactance
// magnitude.
type newmanStrategy struct{}

func newNewmanStrategy() *newmanStrategy { return &newmanStrategy{} }

func (s *newmanStrategy) Name() string     { return "newman" }
func (s *newmanStrategy) BestEffort() bool { return false }

func (s *newmanStrategy) Partition(ctx *GroupContext, k int) ([]string, error) {
	n := ctx.Group.Size()
	if k == 1 {
		return trivialLabels(n), nil
	}

	index := make(map[string]int, n)
	for i, id := range ctx.Group.Buses {
		index[id] = i
	}

	// Inter-community weights, community degrees and total weight.
	between := make([]map[int]float64, n)
	for i := range between {
		between[i] = make(map[int]float64)
	}
	tot := make([]float64, n)
	m := 0.0
	for _, l := range ctx.Lines {
		i, j := index[l.Bus0], index[l.Bus1]
		if i == j {
			continue
		}
		w := 0.0
		if l.Reactance != 0 {
			w = l.SNom / math.Abs(l.Reactance)
		}
		between[i][j] += w
		between[j][i] += w
		tot[i] += w
		tot[j] += w
		m += w
	}

	active := make([]bool, n)
	assign := make([]int, n)
	for i := range active {
		active[i] = true
		assign[i] = i
	}

	// ΔQ of merging communities a and b:
	// e_ab/m - tot_a·tot_b/(2m²). When the group carries no usable
	// edge weight the degree term vanishes and merges are tie-broken
	// by index, keeping the result deterministic.
	gain := func(a, b int) float64 {
		if m == 0 {
			return 0
		}
		return between[a][b]/m - tot[a]*tot[b]/(2*m*m)
	}

	for remaining := n; remaining > k; remaining-- {
		bestA, bestB := -1, -1
		bestGain := math.Inf(-1)
		connected := false
		for a := 0; a < n; a++ {
			if !active[a] {
				continue
			}
			for b := a + 1; b < n; b++ {
				if !active[b] {
					continue
				}
				isConn := between[a][b] > 0
				// Prefer connected merges; fall back to joining
				// disconnected components only when none remain.
				if connected && !isConn {
					continue
				}
				g := gain(a, b)
				if (isConn && !connected) || g > bestGain {
					bestA, bestB, bestGain = a, b, g
					connected = isConn
				}
			}
		}

		// Merge bestB into bestA.
		for c, w := range between[bestB] {
			if c == bestA {
				continue
			}
			between[bestA][c] += w
			between[c][bestA] += w
			delete(between[c], bestB)
		}
		delete(between[bestA], bestB)
		tot[bestA] += tot[bestB]
		active[bestB] = false
		between[bestB] = nil
		for i := range assign {
			if assign[i] == bestB {
				assign[i] = bestA
			}
		}
	}

	return localLabels(assign), nil
}
