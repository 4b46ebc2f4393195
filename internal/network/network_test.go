package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testNetwork builds a small two-country system: a German three-bus
// chain, a French two-bus pair, and one electrically isolated German
// bus.
func testNetwork(t *testing.T) *Network {
	t.Helper()
	net, err := New(
		[]Bus{
			{ID: "d1", Country: "DE", X: 7.0, Y: 51.0},
			{ID: "d2", Country: "DE", X: 8.0, Y: 51.5},
			{ID: "d3", Country: "DE", X: 9.0, Y: 52.0},
			{ID: "f1", Country: "FR", X: 2.0, Y: 48.0},
			{ID: "f2", Country: "FR", X: 3.0, Y: 48.5},
			{ID: "d4", Country: "DE", X: 13.0, Y: 54.0},
		},
		[]Line{
			{ID: "l1", Bus0: "d1", Bus1: "d2", Reactance: 0.1, SNom: 1000, Length: 80},
			{ID: "l2", Bus0: "d2", Bus1: "d3", Reactance: 0.2, SNom: 500, Length: 90},
			{ID: "l3", Bus0: "f1", Bus1: "f2", Reactance: 0.1, SNom: 800, Length: 70},
		},
		[]Generator{
			{ID: "g1", Bus: "d1", Carrier: "OCGT", PNom: 100},
			{ID: "g2", Bus: "f1", Carrier: "solar", PNom: 50, MaxPU: []float64{0.1, 0.5}},
		},
		[]StorageUnit{
			{ID: "s1", Bus: "d2", Carrier: "PHS", PNom: 40},
		},
		[]Load{
			{ID: "ld1", Bus: "d1", PSet: []float64{10, 20}},
			{ID: "ld2", Bus: "f1", PSet: []float64{30, 30}},
		},
	)
	require.NoError(t, err)
	return net
}

func TestNewValidation(t *testing.T) {
	t.Run("duplicate_bus", func(t *testing.T) {
		_, err := New([]Bus{{ID: "a"}, {ID: "a"}}, nil, nil, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate bus")
	})

	t.Run("line_unknown_bus", func(t *testing.T) {
		_, err := New([]Bus{{ID: "a"}}, []Line{{ID: "l", Bus0: "a", Bus1: "b"}}, nil, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown bus")
	})

	t.Run("generator_unknown_bus", func(t *testing.T) {
		_, err := New([]Bus{{ID: "a"}}, nil, []Generator{{ID: "g", Bus: "x"}}, nil, nil)
		require.Error(t, err)
	})

	t.Run("load_unknown_bus", func(t *testing.T) {
		_, err := New([]Bus{{ID: "a"}}, nil, nil, nil, []Load{{ID: "ld", Bus: "x"}})
		require.Error(t, err)
	})
}

func TestDetermineTopology(t *testing.T) {
	net := testNetwork(t)
	net.DetermineTopology()

	sub := make(map[string]string)
	for _, b := range net.Buses {
		sub[b.ID] = b.SubNetwork
	}

	// Components are numbered in first-seen bus order.
	assert.Equal(t, "0", sub["d1"])
	assert.Equal(t, "0", sub["d2"])
	assert.Equal(t, "0", sub["d3"])
	assert.Equal(t, "1", sub["f1"])
	assert.Equal(t, "1", sub["f2"])
	assert.Equal(t, "2", sub["d4"])
}

func TestGroups(t *testing.T) {
	net := testNetwork(t)
	net.DetermineTopology()

	groups := net.Groups()
	require.Len(t, groups, 3)

	assert.Equal(t, GroupKey{Country: "DE", SubNetwork: "0"}, groups[0].Key)
	assert.Equal(t, []string{"d1", "d2", "d3"}, groups[0].Buses)
	assert.Equal(t, GroupKey{Country: "DE", SubNetwork: "2"}, groups[1].Key)
	assert.Equal(t, []string{"d4"}, groups[1].Buses)
	assert.Equal(t, GroupKey{Country: "FR", SubNetwork: "1"}, groups[2].Key)
	assert.Equal(t, []string{"f1", "f2"}, groups[2].Buses)

	// Groups cover every bus exactly once.
	seen := make(map[string]int)
	for _, g := range groups {
		for _, b := range g.Buses {
			seen[b]++
		}
	}
	require.Len(t, seen, len(net.Buses))
	for id, count := range seen {
		assert.Equal(t, 1, count, "bus %s", id)
	}
}

func TestGroupKeyPrefix(t *testing.T) {
	k := GroupKey{Country: "DE", SubNetwork: "0"}
	assert.Equal(t, "DE0 ", k.Prefix())
}

func TestGroupLines(t *testing.T) {
	net := testNetwork(t)

	lines := net.GroupLines([]string{"d1", "d2", "d3"})
	require.Len(t, lines, 2)
	assert.Equal(t, "l1", lines[0].ID)
	assert.Equal(t, "l2", lines[1].ID)

	// Lines crossing the bus set boundary are excluded.
	assert.Empty(t, net.GroupLines([]string{"d1", "f1"}))
}

func TestMeanLoad(t *testing.T) {
	net := testNetwork(t)
	mean := net.MeanLoad()

	assert.InDelta(t, 15.0, mean["d1"], 1e-12)
	assert.InDelta(t, 30.0, mean["f1"], 1e-12)
	assert.Zero(t, mean["d2"])
	assert.Zero(t, mean["d4"])
}

func TestLookups(t *testing.T) {
	net := testNetwork(t)

	b, ok := net.Bus("d2")
	require.True(t, ok)
	assert.Equal(t, 8.0, b.X)

	_, ok = net.Bus("nope")
	assert.False(t, ok)
	assert.True(t, net.HasBus("f2"))
	assert.False(t, net.HasBus("f3"))

	assert.ElementsMatch(t, []string{"d1", "d3"}, net.Neighbors("d2"))
	assert.Empty(t, net.Neighbors("d4"))

	pos := net.Positions([]string{"f1", "d4"})
	assert.Equal(t, [][2]float64{{2.0, 48.0}, {13.0, 54.0}}, pos)
}
