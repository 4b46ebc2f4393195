package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// kmeansStrategy is the weighted-centroid strategy: Lloyd iterations
// over bus positions with per-bus importance weights, restarted many
// times to reduce sensitivity to initialization.
type kmeansStrategy struct {
	opts KMeansOptions
}

func newKMeansStrategy(opts KMeansOptions) *kmeansStrategy {
	return &kmeansStrategy{opts: opts.withDefaults()}
}

func (s *kmeansStrategy) Name() string     { return "kmeans" }
func (s *kmeansStrategy) BestEffort() bool { return false }

func (s *kmeansStrategy) Partition(ctx *GroupContext, k int) ([]string, error) {
	if k == 1 {
		return trivialLabels(ctx.Group.Size()), nil
	}
	pos := ctx.Net.Positions(ctx.Group.Buses)
	points := make([][]float64, len(pos))
	weights := make([]float64, len(pos))
	for i, p := range pos {
		points[i] = []float64{p[0], p[1]}
		weights[i] = float64(ctx.Weights[ctx.Group.Buses[i]])
	}
	rng := rand.New(rand.NewSource(ctx.Seed))
	assign, err := weightedKMeans(points, weights, k, s.opts, rng)
	if err != nil {
		return nil, err
	}
	return localLabels(assign), nil
}

// localLabels converts cluster indices to string labels numbered by
// first occurrence, so equivalent partitions always get equal labels.
func localLabels(assign []int) []string {
	remap := make(map[int]int)
	labels := make([]string, len(assign))
	for i, c := range assign {
		id, ok := remap[c]
		if !ok {
			id = len(remap)
			remap[c] = id
		}
		labels[i] = strconv.Itoa(id)
	}
	return labels
}

// weightedKMeans clusters the rows of x into k non-empty clusters,
// minimizing Σ w_i · ‖x_i - c(x_i)‖². It keeps the best of opts.NInit
// k-means++ restarts. Every cluster is guaranteed non-empty: emptied
// clusters are reseeded with the point contributing most inertia.
func weightedKMeans(x [][]float64, w []float64, k int, opts KMeansOptions, rng *rand.Rand) ([]int, error) {
	n := len(x)
	if k > n {
		return nil, fmt.Errorf("cannot split %d points into %d clusters", n, k)
	}
	opts = opts.withDefaults()

	bestInertia := math.Inf(1)
	var best []int
	for init := 0; init < opts.NInit; init++ {
		assign, inertia := kmeansOnce(x, w, k, opts, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			best = assign
		}
	}
	return best, nil
}

func kmeansOnce(x [][]float64, w []float64, k int, opts KMeansOptions, rng *rand.Rand) ([]int, float64) {
	dim := len(x[0])
	centers := seedPlusPlus(x, w, k, rng)
	assign := make([]int, len(x))
	prev := math.Inf(1)

	var inertia float64
	for iter := 0; iter < opts.MaxIter; iter++ {
		// Assignment step.
		inertia = 0
		for i, p := range x {
			c, d2 := nearestCenter(p, centers)
			assign[i] = c
			inertia += w[i] * d2
		}

		// Reseed emptied clusters so the final partition always has
		// exactly k non-empty clusters: steal the worst-fitting point
		// from a cluster that can spare one.
		members := make([]int, k)
		for _, c := range assign {
			members[c]++
		}
		for c := 0; c < k; c++ {
			if members[c] > 0 {
				continue
			}
			worst, worstCost := -1, -1.0
			for i, p := range x {
				if members[assign[i]] < 2 {
					continue
				}
				cost := w[i] * sqDist(p, centers[assign[i]])
				if cost > worstCost {
					worst, worstCost = i, cost
				}
			}
			if worst < 0 {
				break // fewer points than clusters cannot happen; all singletons
			}
			members[assign[worst]]--
			assign[worst] = c
			members[c] = 1
			copy(centers[c], x[worst])
		}

		// Update step: weighted centroids.
		for c := range centers {
			for d := 0; d < dim; d++ {
				centers[c][d] = 0
			}
		}
		weightSum := make([]float64, k)
		for i, p := range x {
			floats.AddScaled(centers[assign[i]], w[i], p)
			weightSum[assign[i]] += w[i]
		}
		for c := range centers {
			if weightSum[c] > 0 {
				floats.Scale(1/weightSum[c], centers[c])
			}
		}

		// The convergence test only makes sense once a previous
		// inertia exists; iteration 0 must always reassign against
		// the updated centroids.
		if iter > 0 && prev-inertia <= opts.Tol*prev {
			break
		}
		prev = inertia
	}
	return assign, inertia
}

// seedPlusPlus picks k initial centers with k-means++: the first with
// probability proportional to point weight, the rest proportional to
// weight times squared distance to the nearest chosen center.
func seedPlusPlus(x [][]float64, w []float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	pick := func(p []float64) {
		c := make([]float64, len(p))
		copy(c, p)
		centers = append(centers, c)
	}

	pick(x[weightedChoice(w, rng)])
	d2 := make([]float64, len(x))
	for len(centers) < k {
		for i, p := range x {
			_, d2[i] = nearestCenter(p, centers)
			d2[i] *= w[i]
		}
		pick(x[weightedChoice(d2, rng)])
	}
	return centers
}

// weightedChoice samples an index with probability proportional to the
// given non-negative weights, falling back to uniform when all are zero.
func weightedChoice(w []float64, rng *rand.Rand) int {
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return rng.Intn(len(w))
	}
	r := rng.Float64() * total
	for i, v := range w {
		r -= v
		if r <= 0 {
			return i
		}
	}
	return len(w) - 1
}

func nearestCenter(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}
