package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volta-data/gridreduce/internal/network"
)

func mkGroups(sizes map[network.GroupKey]int) []network.Group {
	// Deterministic order is the caller's job in production (Groups is
	// sorted); replicate a fixed order here.
	keys := []network.GroupKey{
		{Country: "DE", SubNetwork: "0"},
		{Country: "DE", SubNetwork: "1"},
		{Country: "FR", SubNetwork: "0"},
	}
	var groups []network.Group
	for _, k := range keys {
		size, ok := sizes[k]
		if !ok {
			continue
		}
		buses := make([]string, size)
		for i := range buses {
			buses[i] = k.Country + k.SubNetwork + "-" + string(rune('a'+i))
		}
		groups = append(groups, network.Group{Key: k, Buses: buses})
	}
	return groups
}

func TestLoadShares(t *testing.T) {
	net, err := network.New(
		[]network.Bus{{ID: "a", Country: "DE"}, {ID: "b", Country: "FR"}},
		nil, nil, nil,
		[]network.Load{
			{ID: "ld1", Bus: "a", PSet: []float64{30, 30}},
			{ID: "ld2", Bus: "b", PSet: []float64{10, 10}},
		},
	)
	require.NoError(t, err)
	net.DetermineTopology()

	groups := net.Groups()
	shares := LoadShares(net, groups)
	require.Len(t, shares, 2)

	total := 0.0
	for _, s := range shares {
		total += s
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.InDelta(t, 0.75, shares[network.GroupKey{Country: "DE", SubNetwork: "0"}], 1e-12)
	assert.InDelta(t, 0.25, shares[network.GroupKey{Country: "FR", SubNetwork: "1"}], 1e-12)
}

func TestAllocate(t *testing.T) {
	de0 := network.GroupKey{Country: "DE", SubNetwork: "0"}
	fr0 := network.GroupKey{Country: "FR", SubNetwork: "0"}
	groups := mkGroups(map[network.GroupKey]int{de0: 3, fr0: 2})
	shares := map[network.GroupKey]float64{de0: 0.6, fr0: 0.4}
	solver, err := SolverByName("greedy")
	require.NoError(t, err)

	budget, err := Allocate(groups, shares, 3, nil, solver)
	require.NoError(t, err)
	assert.Equal(t, map[network.GroupKey]int{de0: 2, fr0: 1}, budget)

	// Invariants: 1 <= n_g <= |g| and the total is exact, for every
	// feasible K.
	for k := len(groups); k <= 5; k++ {
		budget, err := Allocate(groups, shares, k, nil, solver)
		require.NoError(t, err, "k=%d", k)
		sum := 0
		for _, g := range groups {
			n := budget[g.Key]
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, g.Size())
			sum += n
		}
		assert.Equal(t, k, sum)
	}
}

func TestAllocateBounds(t *testing.T) {
	de0 := network.GroupKey{Country: "DE", SubNetwork: "0"}
	fr0 := network.GroupKey{Country: "FR", SubNetwork: "0"}
	groups := mkGroups(map[network.GroupKey]int{de0: 3, fr0: 2})
	shares := map[network.GroupKey]float64{de0: 0.6, fr0: 0.4}
	solver := greedySolver{}

	_, err := Allocate(groups, shares, 1, nil, solver)
	require.Error(t, err, "fewer clusters than groups")
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = Allocate(groups, shares, 6, nil, solver)
	require.Error(t, err, "more clusters than buses")
	assert.True(t, errors.Is(err, ErrConfig))

	_, err = Allocate(nil, nil, 0, nil, solver)
	require.Error(t, err, "no groups")
}

func TestAllocateShareDrift(t *testing.T) {
	de0 := network.GroupKey{Country: "DE", SubNetwork: "0"}
	fr0 := network.GroupKey{Country: "FR", SubNetwork: "0"}
	groups := mkGroups(map[network.GroupKey]int{de0: 3, fr0: 2})
	solver := greedySolver{}

	// Within tolerance passes, beyond it fails.
	_, err := Allocate(groups, map[network.GroupKey]float64{de0: 0.6004, fr0: 0.4}, 3, nil, solver)
	require.NoError(t, err)

	_, err = Allocate(groups, map[network.GroupKey]float64{de0: 0.7, fr0: 0.4}, 3, nil, solver)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfig))
}

func TestAllocateFocusWeights(t *testing.T) {
	de0 := network.GroupKey{Country: "DE", SubNetwork: "0"}
	de1 := network.GroupKey{Country: "DE", SubNetwork: "1"}
	fr0 := network.GroupKey{Country: "FR", SubNetwork: "0"}
	groups := mkGroups(map[network.GroupKey]int{de0: 3, de1: 2, fr0: 3})
	shares := map[network.GroupKey]float64{de0: 0.3, de1: 0.2, fr0: 0.5}
	solver := greedySolver{}

	// Half the budget pinned to DE, split evenly over its two groups;
	// FR renormalizes to the remaining half.
	budget, err := Allocate(groups, shares, 4, map[string]float64{"DE": 0.5}, solver)
	require.NoError(t, err)
	assert.Equal(t, map[network.GroupKey]int{de0: 1, de1: 1, fr0: 2}, budget)

	t.Run("unknown_country", func(t *testing.T) {
		_, err := Allocate(groups, shares, 4, map[string]float64{"XX": 0.5}, solver)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("sum_above_one", func(t *testing.T) {
		_, err := Allocate(groups, shares, 4, map[string]float64{"DE": 0.7, "FR": 0.4}, solver)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
	})

	t.Run("full_focus", func(t *testing.T) {
		// Focus on every country still sums to 1 and allocates.
		budget, err := Allocate(groups, shares, 5, map[string]float64{"DE": 0.6, "FR": 0.4}, solver)
		require.NoError(t, err)
		sum := 0
		for _, n := range budget {
			sum += n
		}
		assert.Equal(t, 5, sum)
	})
}
