package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"
)

// Resolution search bounds. The search walks the resolution parameter of
// modularity community detection until the community count matches the
// target, keeping the closest partition seen. It is explicitly best
// effort: a miss after the attempt ceiling is reported as a Deviation by
// the builder, not as an error.
const (
	louvainRepeats     = 3
	louvainMaxAttempts = 500
	louvainMinRes      = 1e-4
)

// louvainStrategy detects modularity communities on the weighted
// in-group line graph (weight 1/x + 0.1, the offset avoiding the
// singularity of near-zero reactances).
type louvainStrategy struct{}

func newLouvainStrategy() *louvainStrategy { return &louvainStrategy{} }

func (s *louvainStrategy) Name() string     { return "louvain" }
func (s *louvainStrategy) BestEffort() bool { return true }

func (s *louvainStrategy) Partition(ctx *GroupContext, k int) ([]string, error) {
	n := ctx.Group.Size()
	if k == 1 {
		return trivialLabels(n), nil
	}

	g := groupGraph(ctx, func(l lineWeightInput) float64 {
		w := 0.0
		if l.reactance != 0 {
			w = 1 / math.Abs(l.reactance)
		}
		return w + 0.1
	})
	src := rand.NewPCG(uint64(ctx.Seed), 0x9e3779b97f4a7c15)

	detect := func(resolution float64) []int {
		reduced := community.Modularize(g, resolution, src)
		assign := make([]int, n)
		for ci, comm := range reduced.Communities() {
			for _, node := range comm {
				assign[int(node.ID())] = ci
			}
		}
		return assign
	}
	countOf := func(assign []int) int {
		seen := make(map[int]bool)
		for _, c := range assign {
			seen[c] = true
		}
		return len(seen)
	}

	var best []int
	bestDev := math.MaxInt
	for repeat := 0; repeat < louvainRepeats && bestDev != 0; repeat++ {
		res := 100 / math.Pow(float64(k), 1.5)
		cur := detect(res)
		if dev := abs(countOf(cur) - k); dev <= bestDev {
			best, bestDev = cur, dev
		}
		for c := 1; countOf(cur) != k && c < louvainMaxAttempts; c++ {
			// Higher resolution favours smaller communities, so walk
			// the parameter down while above target and up while below.
			if countOf(cur) > k {
				res /= float64(c) * float64(c)
			} else {
				res += 1 / math.Pow(float64(c), 1.5)
			}
			if res < louvainMinRes {
				res += louvainMinRes
			}
			cur = detect(res)
			if dev := abs(countOf(cur) - k); dev <= bestDev {
				best, bestDev = cur, dev
			}
			if bestDev == 0 {
				break
			}
		}
	}

	return localLabels(best), nil
}

// lineWeightInput carries the electrical parameters a strategy's edge
// weighting may use.
type lineWeightInput struct {
	reactance float64
	snom      float64
}

// groupGraph builds the weighted undirected line graph of a group with
// bus indices as node ids. Parallel corridors accumulate their weights.
func groupGraph(ctx *GroupContext, weight func(lineWeightInput) float64) *simple.WeightedUndirectedGraph {
	index := make(map[string]int, ctx.Group.Size())
	for i, id := range ctx.Group.Buses {
		index[id] = i
	}
	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range ctx.Group.Buses {
		g.AddNode(simple.Node(i))
	}
	acc := make(map[[2]int]float64)
	for _, l := range ctx.Lines {
		i, j := index[l.Bus0], index[l.Bus1]
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		acc[[2]int{i, j}] += weight(lineWeightInput{reactance: l.Reactance, snom: l.SNom})
	}
	for pair, w := range acc {
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(pair[0]),
			T: simple.Node(pair[1]),
			W: w,
		})
	}
	return g
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
