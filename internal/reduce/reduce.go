package reduce

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/volta-data/gridreduce/internal/cluster"
	"github.com/volta-data/gridreduce/internal/network"
)

// LineRemoved marks intra-cluster lines in the linemap.
const LineRemoved = "removed"

// Options controls the aggregation of the reduced network.
type Options struct {
	// LineLengthFactor inflates aggregated corridor lengths relative
	// to the straight-line distance between cluster centroids,
	// accounting for routing detours. Zero selects the default 1.25.
	LineLengthFactor float64

	// ExtendedLinkCost is the capital cost per km charged for corridor
	// length added beyond the original lines' mean length.
	ExtendedLinkCost float64

	// PotentialMode selects how generator expansion potentials combine
	// within a cluster: "simple" sums them, "conservative" takes the
	// minimum. Zero value selects "simple".
	PotentialMode string
}

func (o Options) withDefaults() (Options, error) {
	if o.LineLengthFactor == 0 {
		o.LineLengthFactor = 1.25
	}
	switch o.PotentialMode {
	case "":
		o.PotentialMode = "simple"
	case "simple", "conservative":
	default:
		return o, fmt.Errorf("%w: potential mode must be \"simple\" or \"conservative\", got %q",
			cluster.ErrConfig, o.PotentialMode)
	}
	return o, nil
}

// Result is the aggregated network plus the maps relating it to the
// original.
type Result struct {
	Net     *network.Network
	Busmap  cluster.Busmap
	Linemap map[string]string // original line id → new line id or LineRemoved
}

// Reduce aggregates the network over the given busmap. The busmap must
// cover every bus exactly once; passing a busmap this package produced
// back in validates cleanly and aggregates to the same result.
func Reduce(n *network.Network, busmap cluster.Busmap, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if err := busmap.Validate(n); err != nil {
		return nil, err
	}

	labels := sortedLabels(busmap)
	members := make(map[string][]string, len(labels))
	for _, b := range n.Buses {
		members[busmap[b.ID]] = append(members[busmap[b.ID]], b.ID)
	}

	buses, centroid, err := aggregateBuses(n, labels, members)
	if err != nil {
		return nil, err
	}
	gens, err := aggregateGenerators(n, busmap, opts.PotentialMode)
	if err != nil {
		return nil, err
	}
	storage := aggregateStorage(n, busmap)
	loads := aggregateLoads(n, busmap)
	lines, linemap := aggregateLines(n, busmap, centroid, opts)

	reduced, err := network.New(buses, lines, gens, storage, loads)
	if err != nil {
		return nil, fmt.Errorf("assemble reduced network: %w", err)
	}
	reduced.DetermineTopology()
	return &Result{Net: reduced, Busmap: busmap, Linemap: linemap}, nil
}

func sortedLabels(busmap cluster.Busmap) []string {
	labels := make([]string, 0, len(busmap))
	for l := range busmap.Labels() {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// aggregateBuses resolves one bus per cluster. Attributes that must be
// uniform across merged buses (country) are consensus-checked and fail
// the aggregation on disagreement; positions average to the centroid.
func aggregateBuses(n *network.Network, labels []string, members map[string][]string) ([]network.Bus, map[string][2]float64, error) {
	buses := make([]network.Bus, 0, len(labels))
	centroid := make(map[string][2]float64, len(labels))
	for _, label := range labels {
		var country string
		var sx, sy float64
		for i, id := range members[label] {
			b, _ := n.Bus(id)
			if i == 0 {
				country = b.Country
			} else if b.Country != country {
				return nil, nil, fmt.Errorf("cluster %q merges buses from %q and %q; country must agree",
					label, country, b.Country)
			}
			sx += b.X
			sy += b.Y
		}
		count := float64(len(members[label]))
		c := [2]float64{sx / count, sy / count}
		centroid[label] = c
		buses = append(buses, network.Bus{ID: label, Country: country, X: c[0], Y: c[1]})
	}
	return buses, centroid, nil
}

// aggregateGenerators merges generators by (cluster, carrier): installed
// capacity sums, availability combines capacity-weighted, and expansion
// potential follows the configured mode.
func aggregateGenerators(n *network.Network, busmap cluster.Busmap, potentialMode string) ([]network.Generator, error) {
	type key struct{ label, carrier string }
	agg := make(map[key]*network.Generator)
	var order []key
	for _, g := range n.Gens {
		k := key{label: busmap[g.Bus], carrier: g.Carrier}
		a, ok := agg[k]
		if !ok {
			a = &network.Generator{
				ID:      k.label + " " + k.carrier,
				Bus:     k.label,
				Carrier: k.carrier,
			}
			if potentialMode == "conservative" {
				a.PNomMax = math.Inf(1)
			}
			agg[k] = a
			order = append(order, k)
		}
		if len(g.MaxPU) > 0 {
			if len(a.MaxPU) == 0 {
				a.MaxPU = make([]float64, len(g.MaxPU))
			} else if len(a.MaxPU) != len(g.MaxPU) {
				return nil, fmt.Errorf("generator %q availability has %d snapshots, cluster %q has %d",
					g.ID, len(g.MaxPU), k.label, len(a.MaxPU))
			}
			for t := range g.MaxPU {
				a.MaxPU[t] += g.MaxPU[t] * g.PNom
			}
		}
		a.PNom += g.PNom
		if potentialMode == "conservative" {
			a.PNomMax = math.Min(a.PNomMax, g.PNomMax)
		} else {
			a.PNomMax += g.PNomMax
		}
	}

	gens := make([]network.Generator, 0, len(order))
	for _, k := range order {
		a := agg[k]
		// Capacity-weighted availability.
		if a.PNom > 0 {
			for t := range a.MaxPU {
				a.MaxPU[t] /= a.PNom
			}
		}
		gens = append(gens, *a)
	}
	return gens, nil
}

func aggregateStorage(n *network.Network, busmap cluster.Busmap) []network.StorageUnit {
	type key struct{ label, carrier string }
	agg := make(map[key]*network.StorageUnit)
	var order []key
	for _, s := range n.Storage {
		k := key{label: busmap[s.Bus], carrier: s.Carrier}
		a, ok := agg[k]
		if !ok {
			a = &network.StorageUnit{ID: k.label + " " + k.carrier, Bus: k.label, Carrier: k.carrier}
			agg[k] = a
			order = append(order, k)
		}
		a.PNom += s.PNom
	}
	units := make([]network.StorageUnit, 0, len(order))
	for _, k := range order {
		units = append(units, *agg[k])
	}
	return units
}

func aggregateLoads(n *network.Network, busmap cluster.Busmap) []network.Load {
	agg := make(map[string]*network.Load)
	var order []string
	for _, l := range n.Loads {
		label := busmap[l.Bus]
		a, ok := agg[label]
		if !ok {
			a = &network.Load{ID: label, Bus: label}
			agg[label] = a
			order = append(order, label)
		}
		if len(a.PSet) < len(l.PSet) {
			grown := make([]float64, len(l.PSet))
			copy(grown, a.PSet)
			a.PSet = grown
		}
		for t := range l.PSet {
			a.PSet[t] += l.PSet[t]
		}
	}
	loads := make([]network.Load, 0, len(order))
	for _, label := range order {
		loads = append(loads, *agg[label])
	}
	return loads
}

// aggregateLines combines all original lines between the same pair of
// clusters into one corridor: reactances in parallel, ratings summed,
// length from the inflated centroid distance, and capital cost summed
// plus the extension charge for added length.
func aggregateLines(n *network.Network, busmap cluster.Busmap, centroid map[string][2]float64, opts Options) ([]network.Line, map[string]string) {
	type corridor struct {
		bus0, bus1 string
		invX       float64
		resistance float64
		snom       float64
		lengthSum  float64
		costSum    float64
		count      int
		members    []string
	}
	pairs := make(map[[2]string]*corridor)
	var order [][2]string
	linemap := make(map[string]string, len(n.Lines))

	for _, l := range n.Lines {
		c0, c1 := busmap[l.Bus0], busmap[l.Bus1]
		if c0 == c1 {
			linemap[l.ID] = LineRemoved
			continue
		}
		if c0 > c1 {
			c0, c1 = c1, c0
		}
		k := [2]string{c0, c1}
		p, ok := pairs[k]
		if !ok {
			p = &corridor{bus0: c0, bus1: c1}
			pairs[k] = p
			order = append(order, k)
		}
		if l.Reactance != 0 {
			p.invX += 1 / l.Reactance
		}
		p.resistance += l.Resistance
		p.snom += l.SNom
		p.lengthSum += l.Length
		p.costSum += l.CapitalCost
		p.count++
		p.members = append(p.members, l.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i][0] != order[j][0] {
			return order[i][0] < order[j][0]
		}
		return order[i][1] < order[j][1]
	})

	lines := make([]network.Line, 0, len(order))
	for i, k := range order {
		p := pairs[k]
		id := strconv.Itoa(i)
		for _, member := range p.members {
			linemap[member] = id
		}
		x := 0.0
		if p.invX > 0 {
			x = 1 / p.invX
		}
		length := opts.LineLengthFactor * haversineKm(centroid[p.bus0], centroid[p.bus1])
		meanLength := p.lengthSum / float64(p.count)
		cost := p.costSum
		if added := length - meanLength; added > 0 {
			cost += added * opts.ExtendedLinkCost
		}
		lines = append(lines, network.Line{
			ID:          id,
			Bus0:        p.bus0,
			Bus1:        p.bus1,
			Reactance:   x,
			Resistance:  p.resistance / float64(p.count),
			SNom:        p.snom,
			Length:      length,
			CapitalCost: cost,
		})
	}
	return lines, linemap
}

// haversineKm returns the great-circle distance between two (lon, lat)
// positions in kilometres.
func haversineKm(a, b [2]float64) float64 {
	const earthRadiusKm = 6371.0
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b[0] - a[0]) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
