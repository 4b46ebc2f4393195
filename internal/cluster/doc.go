// Package cluster reduces a spatial grid of N buses to K < N clusters
// while preserving aggregate load and generation structure.
//
// The engine runs in three stages:
//
//  1. Weights: every bus receives an integer importance weight from its
//     dispatchable capacity and mean load (Weights).
//  2. Allocation: the total cluster budget K is split across partition
//     groups (country × sub-network) proportionally to load share by an
//     exact integer least-squares apportionment (Allocate).
//  3. Busmap: each group is partitioned into its allocated number of
//     clusters by one of five strategies (Builder.Build), and the
//     group-local labels are prefixed and concatenated into the global
//     busmap.
//
// Strategies: "kmeans" (weighted centroids over bus positions),
// "spectral" (normalized Laplacian embedding of the induced subgraph),
// "hac" (Ward agglomeration over availability features with line
// connectivity constraint), "louvain" (modularity communities with
// resolution search; best-effort count), and "newman" (greedy modularity
// agglomeration to an exact count).
//
// The package is synchronous and single-threaded; partition groups are
// independent, so callers may parallelize Build per group if needed.
package cluster
