package cluster

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/stat"
)

// hacStrategy is agglomerative clustering with Ward linkage over per-bus
// availability features, constrained to merge only clusters that are
// adjacent in the group's line graph. The feature vector is derived from
// generator availability series filtered by carrier tags: either one
// mean capacity factor per carrier ("cap") or the full time profile
// ("time").
type hacStrategy struct {
	feature FeatureOptions
}

func newHACStrategy(feature FeatureOptions) (*hacStrategy, error) {
	if len(feature.Carriers) == 0 {
		return nil, fmt.Errorf("%w: hac requires at least one feature carrier", ErrConfig)
	}
	switch feature.Mode {
	case "cap", "time":
	default:
		return nil, fmt.Errorf("%w: hac feature mode must be \"cap\" or \"time\", got %q", ErrConfig, feature.Mode)
	}
	return &hacStrategy{feature: feature}, nil
}

func (s *hacStrategy) Name() string     { return "hac" }
func (s *hacStrategy) BestEffort() bool { return false }

func (s *hacStrategy) Partition(ctx *GroupContext, k int) ([]string, error) {
	n := ctx.Group.Size()
	if k == 1 {
		return trivialLabels(n), nil
	}

	features := s.featureMatrix(ctx)
	index := make(map[string]int, n)
	for i, id := range ctx.Group.Buses {
		index[id] = i
	}
	adjacent := make([]map[int]bool, n)
	for i := range adjacent {
		adjacent[i] = make(map[int]bool)
	}
	for _, l := range ctx.Lines {
		i, j := index[l.Bus0], index[l.Bus1]
		if i != j {
			adjacent[i][j] = true
			adjacent[j][i] = true
		}
	}

	assign := wardAgglomerate(features, adjacent, k)
	return localLabels(assign), nil
}

// featureMatrix builds one row per bus. "cap" yields one column per
// carrier holding the time-mean capacity factor of the bus's generators
// of that carrier; "time" concatenates the per-snapshot profiles.
// Buses without a matching generator contribute zero rows.
func (s *hacStrategy) featureMatrix(ctx *GroupContext) [][]float64 {
	n := ctx.Group.Size()
	index := make(map[string]int, n)
	for i, id := range ctx.Group.Buses {
		index[id] = i
	}

	// Per bus and carrier: mean availability profile over generators.
	snapshots := 0
	profiles := make([]map[string][]float64, n)
	counts := make([]map[string]int, n)
	for i := range profiles {
		profiles[i] = make(map[string][]float64)
		counts[i] = make(map[string]int)
	}
	for _, g := range ctx.Net.Gens {
		i, ok := index[g.Bus]
		if !ok || len(g.MaxPU) == 0 {
			continue
		}
		for _, c := range s.feature.Carriers {
			if g.Carrier != c {
				continue
			}
			if len(g.MaxPU) > snapshots {
				snapshots = len(g.MaxPU)
			}
			p := profiles[i][c]
			if p == nil {
				p = make([]float64, len(g.MaxPU))
			}
			for t := range g.MaxPU {
				p[t] += g.MaxPU[t]
			}
			profiles[i][c] = p
			counts[i][c]++
		}
	}
	for i := range profiles {
		for c, p := range profiles[i] {
			for t := range p {
				p[t] /= float64(counts[i][c])
			}
		}
	}

	rows := make([][]float64, n)
	for i := range rows {
		if s.feature.Mode == "cap" {
			row := make([]float64, len(s.feature.Carriers))
			for ci, c := range s.feature.Carriers {
				if p := profiles[i][c]; len(p) > 0 {
					row[ci] = stat.Mean(p, nil)
				}
			}
			rows[i] = row
		} else {
			row := make([]float64, snapshots*len(s.feature.Carriers))
			for ci, c := range s.feature.Carriers {
				copy(row[ci*snapshots:], profiles[i][c])
			}
			rows[i] = row
		}
	}
	return rows
}

// wardAgglomerate merges clusters bottom-up until k remain. The merge
// cost is the Ward objective increase
// Δ(A,B) = |A||B|/(|A|+|B|) · ‖centroid(A)-centroid(B)‖², and only
// connectivity-adjacent pairs are eligible. When the constraint graph
// runs out of adjacent pairs before reaching k (disconnected group),
// the nearest pair is merged regardless, mirroring the usual relaxation
// of connectivity-constrained agglomeration.
func wardAgglomerate(x [][]float64, adjacent []map[int]bool, k int) []int {
	n := len(x)
	dim := len(x[0])
	size := make([]int, n)
	centroid := make([][]float64, n)
	active := make([]bool, n)
	assign := make([]int, n)
	for i := range x {
		size[i] = 1
		centroid[i] = append([]float64(nil), x[i]...)
		active[i] = true
		assign[i] = i
	}

	cost := func(a, b int) float64 {
		d2 := 0.0
		for d := 0; d < dim; d++ {
			diff := centroid[a][d] - centroid[b][d]
			d2 += diff * diff
		}
		na, nb := float64(size[a]), float64(size[b])
		return na * nb / (na + nb) * d2
	}

	remaining := n
	for remaining > k {
		bestA, bestB := -1, -1
		bestCost := math.Inf(1)
		for a := 0; a < n; a++ {
			if !active[a] {
				continue
			}
			for b := range adjacent[a] {
				if b <= a || !active[b] {
					continue
				}
				if c := cost(a, b); c < bestCost {
					bestA, bestB, bestCost = a, b, c
				}
			}
		}
		if bestA < 0 {
			// No adjacent pair left; relax the constraint.
			for a := 0; a < n; a++ {
				if !active[a] {
					continue
				}
				for b := a + 1; b < n; b++ {
					if !active[b] {
						continue
					}
					if c := cost(a, b); c < bestCost {
						bestA, bestB, bestCost = a, b, c
					}
				}
			}
			log.Printf("hac: group connectivity exhausted with %d clusters left, merging nearest pair", remaining)
		}

		// Merge bestB into bestA.
		na, nb := float64(size[bestA]), float64(size[bestB])
		for d := 0; d < dim; d++ {
			centroid[bestA][d] = (na*centroid[bestA][d] + nb*centroid[bestB][d]) / (na + nb)
		}
		size[bestA] += size[bestB]
		active[bestB] = false
		for m := range adjacent[bestB] {
			if m != bestA {
				adjacent[bestA][m] = true
				adjacent[m][bestA] = true
			}
			delete(adjacent[m], bestB)
		}
		adjacent[bestB] = map[int]bool{}
		for i := range assign {
			if assign[i] == bestB {
				assign[i] = bestA
			}
		}
		remaining--
	}
	return assign
}
