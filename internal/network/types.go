package network

// Bus is a single electrical node of the input grid.
type Bus struct {
	ID         string  // Unique bus identifier
	Country    string  // ISO country code
	SubNetwork string  // Synchronous zone label, assigned by DetermineTopology
	X          float64 // Longitude (or projected x)
	Y          float64 // Latitude (or projected y)
}

// Line is a transmission corridor between two buses.
type Line struct {
	ID          string
	Bus0        string
	Bus1        string
	Reactance   float64 // Series reactance x (p.u.)
	Resistance  float64 // Series resistance r (p.u.)
	SNom        float64 // Thermal rating (MW)
	Length      float64 // Corridor length (km)
	CapitalCost float64 // Annualised capital cost per MW
}

// Generator is a generation asset attached to a bus.
type Generator struct {
	ID      string
	Bus     string
	Carrier string    // Technology tag, e.g. "OCGT", "onwind", "solar"
	PNom    float64   // Installed capacity (MW)
	PNomMax float64   // Expansion potential (MW)
	MaxPU   []float64 // Per-snapshot availability in [0,1]; empty for firm capacity
}

// StorageUnit is a storage asset attached to a bus.
type StorageUnit struct {
	ID      string
	Bus     string
	Carrier string
	PNom    float64 // Discharge capacity (MW)
}

// Load is a demand series attached to a bus.
type Load struct {
	ID   string
	Bus  string
	PSet []float64 // Per-snapshot demand (MW)
}

// GroupKey identifies a partition group: the set of buses sharing a
// country and an electrical sub-network. Groups are the unit of
// independent cluster allocation and clustering.
type GroupKey struct {
	Country    string
	SubNetwork string
}

// Prefix returns the label prefix that keeps cluster labels from this
// group globally unique ("<country><subnetwork> ").
func (k GroupKey) Prefix() string {
	return k.Country + k.SubNetwork + " "
}

// Group is a partition group: its key and the ids of its member buses,
// in deterministic (input table) order.
type Group struct {
	Key   GroupKey
	Buses []string
}

// Size returns the number of buses in the group.
func (g Group) Size() int { return len(g.Buses) }
