package network

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Network aggregates the input tables and derived lookups.
//
// Construct with New, which indexes the tables and validates referential
// integrity (every line endpoint and asset bus must exist). Call
// DetermineTopology before Groups: sub-network labels are derived from
// line connectivity, not read from the input.
type Network struct {
	Buses    []Bus
	Lines    []Line
	Gens     []Generator
	Storage  []StorageUnit
	Loads    []Load
	busIndex map[string]int

	// adjacency holds, per bus id, the ids of directly connected buses.
	adjacency map[string][]string

	topologyDone bool
}

// New indexes the given tables into a Network. It fails if a line or
// asset references an unknown bus, or if bus ids collide.
func New(buses []Bus, lines []Line, gens []Generator, storage []StorageUnit, loads []Load) (*Network, error) {
	n := &Network{
		Buses:     buses,
		Lines:     lines,
		Gens:      gens,
		Storage:   storage,
		Loads:     loads,
		busIndex:  make(map[string]int, len(buses)),
		adjacency: make(map[string][]string, len(buses)),
	}
	for i, b := range buses {
		if _, dup := n.busIndex[b.ID]; dup {
			return nil, fmt.Errorf("duplicate bus id %q", b.ID)
		}
		n.busIndex[b.ID] = i
	}
	for _, l := range lines {
		if _, ok := n.busIndex[l.Bus0]; !ok {
			return nil, fmt.Errorf("line %q references unknown bus %q", l.ID, l.Bus0)
		}
		if _, ok := n.busIndex[l.Bus1]; !ok {
			return nil, fmt.Errorf("line %q references unknown bus %q", l.ID, l.Bus1)
		}
		n.adjacency[l.Bus0] = append(n.adjacency[l.Bus0], l.Bus1)
		n.adjacency[l.Bus1] = append(n.adjacency[l.Bus1], l.Bus0)
	}
	for _, g := range n.Gens {
		if _, ok := n.busIndex[g.Bus]; !ok {
			return nil, fmt.Errorf("generator %q references unknown bus %q", g.ID, g.Bus)
		}
	}
	for _, s := range n.Storage {
		if _, ok := n.busIndex[s.Bus]; !ok {
			return nil, fmt.Errorf("storage unit %q references unknown bus %q", s.ID, s.Bus)
		}
	}
	for _, l := range n.Loads {
		if _, ok := n.busIndex[l.Bus]; !ok {
			return nil, fmt.Errorf("load %q references unknown bus %q", l.ID, l.Bus)
		}
	}
	return n, nil
}

// Bus returns the bus with the given id, or false if unknown.
func (n *Network) Bus(id string) (Bus, bool) {
	i, ok := n.busIndex[id]
	if !ok {
		return Bus{}, false
	}
	return n.Buses[i], true
}

// HasBus reports whether id names a bus of the network.
func (n *Network) HasBus(id string) bool {
	_, ok := n.busIndex[id]
	return ok
}

// Neighbors returns the ids of buses directly connected to id.
func (n *Network) Neighbors(id string) []string {
	return n.adjacency[id]
}

// DetermineTopology assigns each bus a sub-network label by labelling the
// connected components of the line graph. Components are numbered in
// order of their lowest bus index so repeated runs produce identical
// labels. Must be called before Groups.
func (n *Network) DetermineTopology() {
	component := make(map[string]int, len(n.Buses))
	next := 0
	for _, b := range n.Buses {
		if _, seen := component[b.ID]; seen {
			continue
		}
		// BFS flood fill from the first unseen bus.
		queue := []string{b.ID}
		component[b.ID] = next
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range n.adjacency[cur] {
				if _, seen := component[nb]; !seen {
					component[nb] = next
					queue = append(queue, nb)
				}
			}
		}
		next++
	}
	for i := range n.Buses {
		n.Buses[i].SubNetwork = fmt.Sprintf("%d", component[n.Buses[i].ID])
	}
	n.topologyDone = true
}

// Groups partitions the bus set by (country, sub-network). The returned
// groups are sorted by key and together cover every bus exactly once.
func (n *Network) Groups() []Group {
	byKey := make(map[GroupKey][]string)
	for _, b := range n.Buses {
		k := GroupKey{Country: b.Country, SubNetwork: b.SubNetwork}
		byKey[k] = append(byKey[k], b.ID)
	}
	keys := make([]GroupKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Country != keys[j].Country {
			return keys[i].Country < keys[j].Country
		}
		return keys[i].SubNetwork < keys[j].SubNetwork
	})
	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Buses: byKey[k]}
	}
	return groups
}

// GroupLines returns the lines with both endpoints inside the given bus
// set, preserving input order.
func (n *Network) GroupLines(buses []string) []Line {
	in := make(map[string]bool, len(buses))
	for _, b := range buses {
		in[b] = true
	}
	var lines []Line
	for _, l := range n.Lines {
		if in[l.Bus0] && in[l.Bus1] {
			lines = append(lines, l)
		}
	}
	return lines
}

// MeanLoad returns the time-averaged demand attached to each bus. Buses
// without loads map to 0.
func (n *Network) MeanLoad() map[string]float64 {
	mean := make(map[string]float64, len(n.Buses))
	for _, b := range n.Buses {
		mean[b.ID] = 0
	}
	for _, l := range n.Loads {
		if len(l.PSet) == 0 {
			continue
		}
		mean[l.Bus] += stat.Mean(l.PSet, nil)
	}
	return mean
}

// Positions returns the (x, y) coordinates of the given buses, in order.
func (n *Network) Positions(buses []string) [][2]float64 {
	pos := make([][2]float64, len(buses))
	for i, id := range buses {
		b := n.Buses[n.busIndex[id]]
		pos[i] = [2]float64{b.X, b.Y}
	}
	return pos
}
