package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/volta-data/gridreduce/internal/cluster"
)

// writeMapCSV writes a two-column id->value table sorted by id so the
// output is stable across runs.
func writeMapCSV(path string, header [2]string, m map[string]string) error {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for _, id := range ids {
		if err := w.Write([]string{id, m[id]}); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// readBusmapCSV loads a caller-supplied busmap (bus,cluster rows with a
// header). The result still needs Validate against the network.
func readBusmapCSV(path string) (cluster.Busmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open busmap %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read busmap %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("busmap %s: no data rows", path)
	}

	busmap := make(cluster.Busmap, len(rows)-1)
	for _, row := range rows[1:] {
		if _, dup := busmap[row[0]]; dup {
			return nil, fmt.Errorf("busmap %s: duplicate bus %q", path, row[0])
		}
		busmap[row[0]] = row[1]
	}
	return busmap, nil
}
