package cluster

import (
	"github.com/volta-data/gridreduce/internal/network"
)

// Conventional (dispatchable) carriers that count towards a bus's
// generation weight. Variable renewables are deliberately excluded: their
// siting is handled by the clustering features, not the weights.
var conventionalCarriers = map[string]bool{
	"OCGT":  true,
	"CCGT":  true,
	"PHS":   true,
	"hydro": true,
}

// Weights derives a per-bus integer importance weight for the buses of
// one partition group.
//
// The generation total (dispatchable generator capacity plus storage
// discharge capacity) and the mean load are normalized independently
// over the group, summed, rescaled so the maximum weight is 100, clipped
// below at 1 and truncated to int. Every bus therefore gets a strictly
// positive weight; a group with zero generation and zero load degrades
// to all-ones rather than NaN.
func Weights(n *network.Network, buses []string) map[string]int {
	gen := make(map[string]float64, len(buses))
	load := make(map[string]float64, len(buses))
	in := make(map[string]bool, len(buses))
	for _, b := range buses {
		in[b] = true
		gen[b] = 0
		load[b] = 0
	}

	for _, g := range n.Gens {
		if in[g.Bus] && conventionalCarriers[g.Carrier] {
			gen[g.Bus] += g.PNom
		}
	}
	for _, s := range n.Storage {
		if in[s.Bus] && conventionalCarriers[s.Carrier] {
			gen[s.Bus] += s.PNom
		}
	}
	for id, mean := range n.MeanLoad() {
		if in[id] {
			load[id] = mean
		}
	}

	normalize(gen, buses)
	normalize(load, buses)

	// w = g + l, rescaled to max 100, floored at 1.
	maxW := 0.0
	w := make(map[string]float64, len(buses))
	for _, b := range buses {
		w[b] = gen[b] + load[b]
		if w[b] > maxW {
			maxW = w[b]
		}
	}
	out := make(map[string]int, len(buses))
	for _, b := range buses {
		v := 0.0
		if maxW > 0 {
			v = w[b] * 100 / maxW
		}
		if v < 1 {
			v = 1
		}
		out[b] = int(v)
	}
	return out
}

// normalize scales the values at the given keys to a distribution over
// them. A zero total maps to all-zero, never NaN.
func normalize(m map[string]float64, keys []string) {
	total := 0.0
	for _, k := range keys {
		total += m[k]
	}
	if total == 0 {
		return
	}
	for _, k := range keys {
		m[k] /= total
	}
}
