package cluster

import "errors"

// Error taxonomy of the clustering engine. All three are unrecoverable
// for the current run: callers decide whether to retry with different
// parameters, the engine never retries on its own.
var (
	// ErrConfig indicates invalid or unsupported input: bad algorithm
	// name, focus weights summing above 1, a requested cluster total
	// outside [group count, bus count], or inconsistent carrier policy.
	ErrConfig = errors.New("cluster: invalid configuration")

	// ErrAllocation indicates the cluster-count integer program was
	// infeasible or the solver reported a non-optimal status.
	ErrAllocation = errors.New("cluster: allocation failed")

	// ErrDegenerate indicates a strategy could not reach the requested
	// cluster count within its iteration budget. Only the resolution
	// search tolerates this internally, returning its best effort.
	ErrDegenerate = errors.New("cluster: clustering degenerated")
)
