package cluster

import (
	"fmt"
	"log"

	"github.com/volta-data/gridreduce/internal/network"
)

// Busmap maps every original bus id to the label of the cluster it is
// aggregated into. Labels are globally unique: each group's local labels
// ("0", "1", ...) are prefixed with the group key.
type Busmap map[string]string

// Labels returns the set of distinct cluster labels in the busmap.
func (b Busmap) Labels() map[string]bool {
	labels := make(map[string]bool)
	for _, l := range b {
		labels[l] = true
	}
	return labels
}

// Validate checks that the busmap covers every bus of the network
// exactly once and references no unknown bus. Used both for produced
// busmaps and for caller-supplied custom busmaps.
func (b Busmap) Validate(n *network.Network) error {
	for id := range b {
		if !n.HasBus(id) {
			return fmt.Errorf("%w: busmap references unknown bus %q", ErrConfig, id)
		}
	}
	for _, bus := range n.Buses {
		if _, ok := b[bus.ID]; !ok {
			return fmt.Errorf("%w: busmap is missing bus %q", ErrConfig, bus.ID)
		}
	}
	return nil
}

// Identity returns the identity busmap (every bus its own cluster).
// This is the fast path when the requested cluster count equals the bus
// count and no clustering is necessary.
func Identity(n *network.Network) Busmap {
	b := make(Busmap, len(n.Buses))
	for _, bus := range n.Buses {
		b[bus.ID] = bus.ID
	}
	return b
}

// Deviation records a group whose strategy returned a cluster count
// different from its allocated budget. Only the resolution-search
// strategy can produce one; all other strategies hit their target
// exactly or fail.
type Deviation struct {
	Group network.GroupKey
	Want  int
	Got   int
}

// GroupContext carries the inputs a strategy may need to partition one
// group: the group's buses, their weights, the in-group lines and the
// parent network for positions and availability series.
type GroupContext struct {
	Net     *network.Network
	Group   network.Group
	Weights map[string]int
	Lines   []network.Line
	Seed    int64
}

// Strategy partitions the buses of one group into k labeled clusters.
// The returned slice is aligned with ctx.Group.Buses and holds local
// labels "0" .. "k-1" (the resolution-search strategy may use more or
// fewer labels; see Deviation).
type Strategy interface {
	Name() string
	Partition(ctx *GroupContext, k int) ([]string, error)

	// BestEffort reports whether the strategy may return a cluster
	// count different from k. Only the resolution search does; every
	// other strategy reaches k by construction or fails.
	BestEffort() bool
}

// Builder produces the global busmap by dispatching each partition group
// to the configured strategy.
type Builder struct {
	Net      *network.Network
	Strategy Strategy
	Seed     int64
}

// NewBuilder resolves the algorithm name to a strategy. Unsupported
// names fail with ErrConfig.
func NewBuilder(n *network.Network, algorithm string, opts Options) (*Builder, error) {
	s, err := strategyFor(algorithm, opts)
	if err != nil {
		return nil, err
	}
	return &Builder{Net: n, Strategy: s, Seed: opts.Seed}, nil
}

func strategyFor(algorithm string, opts Options) (Strategy, error) {
	switch algorithm {
	case "kmeans":
		return newKMeansStrategy(opts.KMeans), nil
	case "spectral":
		return newSpectralStrategy(opts.KMeans), nil
	case "hac":
		return newHACStrategy(opts.Feature)
	case "louvain":
		return newLouvainStrategy(), nil
	case "newman":
		return newNewmanStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: algorithm must be one of kmeans, spectral, hac, louvain or newman, got %q",
			ErrConfig, algorithm)
	}
}

// Build partitions every group into its budgeted number of clusters and
// concatenates the prefixed results. Groups with a single bus map to one
// cluster without invoking the strategy. The returned deviations list
// the groups whose effective cluster count differs from the budget.
func (b *Builder) Build(groups []network.Group, budget map[network.GroupKey]int) (Busmap, []Deviation, error) {
	busmap := make(Busmap, len(b.Net.Buses))
	var deviations []Deviation

	for _, g := range groups {
		prefix := g.Key.Prefix()
		if g.Size() == 1 {
			busmap[g.Buses[0]] = prefix + "0"
			continue
		}

		k, ok := budget[g.Key]
		if !ok {
			return nil, nil, fmt.Errorf("%w: no cluster budget for group %v", ErrConfig, g.Key)
		}
		if k < 1 || k > g.Size() {
			return nil, nil, fmt.Errorf("%w: budget %d for group %v of size %d", ErrConfig, k, g.Key, g.Size())
		}
		log.Printf("busmap: partitioning group %s%s (%d buses) into %d clusters using %s",
			g.Key.Country, g.Key.SubNetwork, g.Size(), k, b.Strategy.Name())

		ctx := &GroupContext{
			Net:     b.Net,
			Group:   g,
			Weights: Weights(b.Net, g.Buses),
			Lines:   b.Net.GroupLines(g.Buses),
			Seed:    b.Seed,
		}
		labels, err := b.Strategy.Partition(ctx, k)
		if err != nil {
			return nil, nil, fmt.Errorf("group %v: %w", g.Key, err)
		}
		if len(labels) != g.Size() {
			return nil, nil, fmt.Errorf("group %v: strategy %s labeled %d of %d buses",
				g.Key, b.Strategy.Name(), len(labels), g.Size())
		}

		distinct := make(map[string]bool, k)
		for i, bus := range g.Buses {
			busmap[bus] = prefix + labels[i]
			distinct[labels[i]] = true
		}
		if len(distinct) != k {
			if !b.Strategy.BestEffort() {
				return nil, nil, fmt.Errorf("group %v: %w: strategy %s produced %d clusters, want %d",
					g.Key, ErrDegenerate, b.Strategy.Name(), len(distinct), k)
			}
			deviations = append(deviations, Deviation{Group: g.Key, Want: k, Got: len(distinct)})
			log.Printf("busmap: group %s%s reached %d clusters instead of %d (best effort)",
				g.Key.Country, g.Key.SubNetwork, len(distinct), k)
		}
	}
	return busmap, deviations, nil
}

// trivialLabels returns the single-cluster labeling for a group; every
// strategy short-circuits to this when asked for one cluster.
func trivialLabels(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = "0"
	}
	return labels
}
