package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volta-data/gridreduce/internal/network"
)

func TestWeights(t *testing.T) {
	net, err := network.New(
		[]network.Bus{{ID: "a", Country: "DE"}, {ID: "b", Country: "DE"}, {ID: "c", Country: "DE"}},
		nil,
		[]network.Generator{
			{ID: "g1", Bus: "a", Carrier: "OCGT", PNom: 100},
			// Variable renewables do not count towards the weight.
			{ID: "g2", Bus: "a", Carrier: "solar", PNom: 500},
			{ID: "g3", Bus: "b", Carrier: "hydro", PNom: 50},
		},
		[]network.StorageUnit{
			{ID: "s1", Bus: "b", Carrier: "PHS", PNom: 50},
		},
		[]network.Load{
			{ID: "ld1", Bus: "a", PSet: []float64{30, 30}},
			{ID: "ld2", Bus: "b", PSet: []float64{10, 10}},
		},
	)
	require.NoError(t, err)

	w := Weights(net, []string{"a", "b", "c"})

	// gen shares: a=0.5, b=0.5; load shares: a=0.75, b=0.25.
	// Combined {1.25, 0.75, 0} scaled to max 100 and floored at 1.
	assert.Equal(t, 100, w["a"])
	assert.Equal(t, 60, w["b"])
	assert.Equal(t, 1, w["c"])
}

func TestWeightsDegenerateGroup(t *testing.T) {
	net, err := network.New(
		[]network.Bus{{ID: "a"}, {ID: "b"}},
		nil, nil, nil, nil,
	)
	require.NoError(t, err)

	w := Weights(net, []string{"a", "b"})
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, w,
		"no generation and no load must degrade to uniform weights")
}

func TestWeightsScopedToGroup(t *testing.T) {
	// Assets on buses outside the group must not leak into the weights.
	net, err := network.New(
		[]network.Bus{{ID: "a"}, {ID: "out"}},
		nil,
		[]network.Generator{{ID: "g", Bus: "out", Carrier: "CCGT", PNom: 1000}},
		nil,
		[]network.Load{{ID: "ld", Bus: "out", PSet: []float64{100}}},
	)
	require.NoError(t, err)

	w := Weights(net, []string{"a"})
	assert.Equal(t, map[string]int{"a": 1}, w)
}
