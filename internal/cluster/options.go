package cluster

// Options tunes the clustering strategies. Zero values select the
// defaults the strategies were calibrated with.
type Options struct {
	// Seed fixes the random source of the randomized strategies
	// (kmeans restarts, spectral embedding clustering, louvain order).
	Seed int64

	KMeans  KMeansOptions
	Feature FeatureOptions
}

// KMeansOptions controls the weighted-centroid strategy and the k-means
// step of the spectral embedding. The generous default budgets reduce
// sensitivity to initialization.
type KMeansOptions struct {
	NInit   int     // Number of random restarts (default 1000)
	MaxIter int     // Iteration ceiling per restart (default 30000)
	Tol     float64 // Relative inertia improvement to continue (default 1e-6)
}

func (o KMeansOptions) withDefaults() KMeansOptions {
	if o.NInit == 0 {
		o.NInit = 1000
	}
	if o.MaxIter == 0 {
		o.MaxIter = 30000
	}
	if o.Tol == 0 {
		o.Tol = 1e-6
	}
	return o
}

// FeatureOptions selects the per-bus feature vector of the hierarchical
// strategy: one or more generator carrier tags and a summary mode.
type FeatureOptions struct {
	Carriers []string // Carrier tags, e.g. ["onwind", "solar"]
	Mode     string   // "cap" (mean capacity factor per carrier) or "time" (full profile)
}
