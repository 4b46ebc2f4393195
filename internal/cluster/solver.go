package cluster

import (
	"fmt"
	"sort"
)

// AllocationProblem is the integer program behind Allocate: choose one
// integer n_g per group, 1 ≤ n_g ≤ Upper[g], summing to Total, minimizing
// Σ (n_g - Targets[g])².
type AllocationProblem struct {
	Targets []float64 // Ideal fractional allocation per group
	Upper   []int     // Group sizes (hard per-group ceiling)
	Total   int       // Requested total cluster count K
}

// Solver solves an AllocationProblem to optimality. Implementations must
// either return an optimal feasible assignment or an error; returning a
// heuristic answer silently is not allowed.
type Solver interface {
	Name() string
	Solve(p AllocationProblem) ([]int, error)
}

// SolverByName returns the registered solver backend with the given
// name. The empty string selects the default ("greedy").
func SolverByName(name string) (Solver, error) {
	switch name {
	case "", "greedy":
		return greedySolver{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown solver %q", ErrConfig, name)
	}
}

// greedySolver solves the problem exactly by marginal allocation.
//
// The objective is separable and convex in each n_g, so starting every
// group at its lower bound and repeatedly granting one extra cluster to
// the group with the smallest marginal cost increase reaches the global
// optimum. The marginal cost of raising n_g by one is
// (n_g+1-t_g)² - (n_g-t_g)² = 2(n_g-t_g)+1, monotone in n_g.
type greedySolver struct{}

func (greedySolver) Name() string { return "greedy" }

func (greedySolver) Solve(p AllocationProblem) ([]int, error) {
	k := len(p.Targets)
	if k == 0 || len(p.Upper) != k {
		return nil, fmt.Errorf("malformed problem: %d targets, %d bounds", k, len(p.Upper))
	}
	capacity := 0
	for i, u := range p.Upper {
		if u < 1 {
			return nil, fmt.Errorf("group %d has capacity %d < 1", i, u)
		}
		capacity += u
	}
	if p.Total < k || p.Total > capacity {
		return nil, fmt.Errorf("infeasible: total %d outside [%d, %d]", p.Total, k, capacity)
	}

	n := make([]int, k)
	for i := range n {
		n[i] = 1
	}

	type step struct {
		cost  float64
		group int
		inc   int // 1-based index of the increment within the group
	}
	// Pre-enumerate every possible unit increment and take the cheapest
	// (total - k) of them. Sorting once beats a heap at these sizes and
	// keeps ties deterministic (group order breaks them).
	var steps []step
	for g := 0; g < k; g++ {
		for inc := 1; inc < p.Upper[g]; inc++ {
			cur := float64(inc) // value of n_g before this increment
			steps = append(steps, step{
				cost:  2*(cur-p.Targets[g]) + 1,
				group: g,
				inc:   inc,
			})
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].cost != steps[j].cost {
			return steps[i].cost < steps[j].cost
		}
		if steps[i].group != steps[j].group {
			return steps[i].group < steps[j].group
		}
		return steps[i].inc < steps[j].inc
	})
	remaining := p.Total - k
	for _, s := range steps {
		if remaining == 0 {
			break
		}
		// Increments within a group have monotone cost, so the sorted
		// prefix always takes them in order; each taken step is valid.
		n[s.group]++
		remaining--
	}
	if remaining != 0 {
		return nil, fmt.Errorf("could not place %d remaining clusters", remaining)
	}
	return n, nil
}
