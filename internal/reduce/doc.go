// Package reduce builds the aggregated network from a finished busmap:
// one bus per cluster label with consensus attributes, weighted-combined
// generators, storage and loads, and a reduced line set with inflated
// lengths and adjusted capital costs. It also emits the linemap relating
// every original line to its aggregated corridor (or "removed" for
// intra-cluster lines).
package reduce
