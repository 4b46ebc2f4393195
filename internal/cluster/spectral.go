package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// spectralStrategy partitions a group by normalized spectral clustering
// of its induced line subgraph: embed the buses with the eigenvectors of
// the symmetric normalized Laplacian belonging to the k smallest
// eigenvalues, then run k-means on the row-normalized embedding.
type spectralStrategy struct {
	opts KMeansOptions
}

func newSpectralStrategy(opts KMeansOptions) *spectralStrategy {
	// The embedding is low-dimensional and well separated; the huge
	// restart budget of the positional k-means is unnecessary here.
	opts = opts.withDefaults()
	if opts.NInit > 50 {
		opts.NInit = 50
	}
	return &spectralStrategy{opts: opts}
}

func (s *spectralStrategy) Name() string     { return "spectral" }
func (s *spectralStrategy) BestEffort() bool { return false }

func (s *spectralStrategy) Partition(ctx *GroupContext, k int) ([]string, error) {
	n := ctx.Group.Size()
	if k == 1 {
		return trivialLabels(n), nil
	}

	index := make(map[string]int, n)
	for i, id := range ctx.Group.Buses {
		index[id] = i
	}

	// Adjacency of the induced subgraph; parallel corridors accumulate.
	adj := mat.NewSymDense(n, nil)
	for _, l := range ctx.Lines {
		i, j := index[l.Bus0], index[l.Bus1]
		if i == j {
			continue
		}
		adj.SetSym(i, j, adj.At(i, j)+1)
	}

	// Symmetric normalized Laplacian L = I - D^-1/2 A D^-1/2.
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			deg[i] += adj.At(i, j)
		}
	}
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if deg[i] > 0 {
			lap.SetSym(i, i, 1)
		}
		for j := i + 1; j < n; j++ {
			if a := adj.At(i, j); a != 0 {
				lap.SetSym(i, j, -a/math.Sqrt(deg[i]*deg[j]))
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(lap, true) {
		return nil, fmt.Errorf("spectral: eigendecomposition of %d-bus Laplacian failed", n)
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	// Eigenvalues come back ascending, so the first k columns span the
	// flattest modes of the graph. Row-normalize the embedding.
	points := make([][]float64, n)
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, k)
		norm := 0.0
		for d := 0; d < k; d++ {
			row[d] = vecs.At(i, d)
			norm += row[d] * row[d]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for d := range row {
				row[d] /= norm
			}
		}
		points[i] = row
		weights[i] = 1
	}

	rng := rand.New(rand.NewSource(ctx.Seed))
	assign, err := weightedKMeans(points, weights, k, s.opts, rng)
	if err != nil {
		return nil, err
	}
	return localLabels(assign), nil
}
