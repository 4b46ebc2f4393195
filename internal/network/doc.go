// Package network holds the immutable input model for the spatial grid:
// buses, transmission lines, generators, storage units and loads, plus the
// derived structures the clustering engine needs (id lookups, line
// adjacency, electrical sub-network labelling and partition groups).
//
// All tables are read-only after construction. Derived state is computed
// once by Index and DetermineTopology; nothing here mutates the inputs.
package network
