package cluster

import (
	"fmt"
	"log"
	"math"

	"github.com/volta-data/gridreduce/internal/network"
)

// loadShareTolerance bounds the accepted drift of the group load-share
// distribution away from 1.0 after focus-weight adjustment.
const loadShareTolerance = 1e-3

// LoadShares computes each group's share of total network load (mean
// over snapshots), normalized to a distribution over groups.
func LoadShares(n *network.Network, groups []network.Group) map[network.GroupKey]float64 {
	mean := n.MeanLoad()
	shares := make(map[network.GroupKey]float64, len(groups))
	total := 0.0
	for _, g := range groups {
		sum := 0.0
		for _, b := range g.Buses {
			sum += mean[b]
		}
		shares[g.Key] = sum
		total += sum
	}
	if total > 0 {
		for k := range shares {
			shares[k] /= total
		}
	}
	return shares
}

// Allocate distributes totalClusters across the partition groups,
// proportionally to loadShare, by solving the integer least-squares
// apportionment with the given solver backend.
//
// focusWeights optionally reserves a fraction of the total for every
// group of a country; provided fractions must sum to at most 1. The
// returned budget satisfies 1 ≤ budget[g] ≤ |g| for every group and sums
// to exactly totalClusters.
func Allocate(groups []network.Group, loadShare map[network.GroupKey]float64, totalClusters int, focusWeights map[string]float64, solver Solver) (map[network.GroupKey]int, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no partition groups", ErrConfig)
	}
	capacity := 0
	for _, g := range groups {
		capacity += g.Size()
	}
	if totalClusters < len(groups) || totalClusters > capacity {
		return nil, fmt.Errorf("%w: number of clusters must satisfy %d <= n <= %d, got %d",
			ErrConfig, len(groups), capacity, totalClusters)
	}

	share := make(map[network.GroupKey]float64, len(groups))
	for _, g := range groups {
		share[g.Key] = loadShare[g.Key]
	}

	if len(focusWeights) > 0 {
		if err := applyFocusWeights(groups, share, focusWeights); err != nil {
			return nil, err
		}
		log.Printf("allocate: using custom focus weights for cluster distribution")
	}

	sum := 0.0
	for _, g := range groups {
		sum += share[g.Key]
	}
	if math.Abs(sum-1) > loadShareTolerance {
		return nil, fmt.Errorf("%w: group load shares must sum to 1.0, got %v", ErrConfig, sum)
	}

	prob := AllocationProblem{
		Targets: make([]float64, len(groups)),
		Upper:   make([]int, len(groups)),
		Total:   totalClusters,
	}
	for i, g := range groups {
		prob.Targets[i] = share[g.Key] * float64(totalClusters)
		prob.Upper[i] = g.Size()
	}
	n, err := solver.Solve(prob)
	if err != nil {
		return nil, fmt.Errorf("%w: solver %s: %v", ErrAllocation, solver.Name(), err)
	}

	budget := make(map[network.GroupKey]int, len(groups))
	got := 0
	for i, g := range groups {
		if n[i] < 1 || n[i] > g.Size() {
			return nil, fmt.Errorf("%w: solver %s returned %d clusters for group %v of size %d",
				ErrAllocation, solver.Name(), n[i], g.Key, g.Size())
		}
		budget[g.Key] = n[i]
		got += n[i]
	}
	if got != totalClusters {
		return nil, fmt.Errorf("%w: solver %s allocated %d clusters, want %d",
			ErrAllocation, solver.Name(), got, totalClusters)
	}
	return budget, nil
}

// applyFocusWeights overrides the shares of focused countries' groups
// (splitting each country's weight evenly across its groups) and
// renormalizes the remaining groups to consume exactly 1 - totalFocus.
func applyFocusWeights(groups []network.Group, share map[network.GroupKey]float64, focusWeights map[string]float64) error {
	totalFocus := 0.0
	for _, w := range focusWeights {
		totalFocus += w
	}
	if totalFocus > 1.0 {
		return fmt.Errorf("%w: focus weights sum to %v, must be <= 1.0", ErrConfig, totalFocus)
	}

	groupsPerCountry := make(map[string]int)
	for _, g := range groups {
		groupsPerCountry[g.Key.Country]++
	}
	for country := range focusWeights {
		if groupsPerCountry[country] == 0 {
			return fmt.Errorf("%w: focus weight for unknown country %q", ErrConfig, country)
		}
	}

	remainderSum := 0.0
	for _, g := range groups {
		if _, focused := focusWeights[g.Key.Country]; !focused {
			remainderSum += share[g.Key]
		}
	}
	for _, g := range groups {
		if w, focused := focusWeights[g.Key.Country]; focused {
			share[g.Key] = w / float64(groupsPerCountry[g.Key.Country])
		} else if remainderSum > 0 {
			share[g.Key] = share[g.Key] / remainderSum * (1 - totalFocus)
		}
	}
	return nil
}
