package network

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteDir writes the network back out in the same table layout LoadDir
// reads, so a reduced network can be fed into downstream tooling (or
// back into this tool). Series files are only written when at least one
// asset carries a series.
func WriteDir(n *Network, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	busRows := make([][]string, 0, len(n.Buses))
	for _, b := range n.Buses {
		busRows = append(busRows, []string{b.ID, b.Country, ftoa(b.X), ftoa(b.Y)})
	}
	if err := writeTable(filepath.Join(dir, "buses.csv"),
		[]string{"id", "country", "x", "y"}, busRows); err != nil {
		return err
	}

	lineRows := make([][]string, 0, len(n.Lines))
	for _, l := range n.Lines {
		lineRows = append(lineRows, []string{
			l.ID, l.Bus0, l.Bus1,
			ftoa(l.Reactance), ftoa(l.Resistance), ftoa(l.SNom),
			ftoa(l.Length), ftoa(l.CapitalCost),
		})
	}
	if err := writeTable(filepath.Join(dir, "lines.csv"),
		[]string{"id", "bus0", "bus1", "x", "r", "s_nom", "length", "capital_cost"}, lineRows); err != nil {
		return err
	}

	genRows := make([][]string, 0, len(n.Gens))
	for _, g := range n.Gens {
		genRows = append(genRows, []string{g.ID, g.Bus, g.Carrier, ftoa(g.PNom), ftoa(g.PNomMax)})
	}
	if err := writeTable(filepath.Join(dir, "generators.csv"),
		[]string{"id", "bus", "carrier", "p_nom", "p_nom_max"}, genRows); err != nil {
		return err
	}

	storageRows := make([][]string, 0, len(n.Storage))
	for _, s := range n.Storage {
		storageRows = append(storageRows, []string{s.ID, s.Bus, s.Carrier, ftoa(s.PNom)})
	}
	if err := writeTable(filepath.Join(dir, "storage_units.csv"),
		[]string{"id", "bus", "carrier", "p_nom"}, storageRows); err != nil {
		return err
	}

	loadRows := make([][]string, 0, len(n.Loads))
	for _, l := range n.Loads {
		loadRows = append(loadRows, []string{l.ID, l.Bus})
	}
	if err := writeTable(filepath.Join(dir, "loads.csv"),
		[]string{"id", "bus"}, loadRows); err != nil {
		return err
	}

	genIDs := make([]string, 0, len(n.Gens))
	genSeries := make(map[string][]float64, len(n.Gens))
	for _, g := range n.Gens {
		if len(g.MaxPU) > 0 {
			genIDs = append(genIDs, g.ID)
			genSeries[g.ID] = g.MaxPU
		}
	}
	if err := writeSeries(filepath.Join(dir, "generators-p_max_pu.csv"), genIDs, genSeries); err != nil {
		return err
	}

	loadIDs := make([]string, 0, len(n.Loads))
	loadSeries := make(map[string][]float64, len(n.Loads))
	for _, l := range n.Loads {
		if len(l.PSet) > 0 {
			loadIDs = append(loadIDs, l.ID)
			loadSeries[l.ID] = l.PSet
		}
	}
	return writeSeries(filepath.Join(dir, "loads-p_set.csv"), loadIDs, loadSeries)
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

// writeSeries emits a wide table: snapshot column plus one column per
// asset id, in the given column order. Nothing is written when ids is
// empty. All series must have equal length.
func writeSeries(path string, ids []string, series map[string][]float64) error {
	if len(ids) == 0 {
		return nil
	}

	snapshots := len(series[ids[0]])
	for _, id := range ids {
		if len(series[id]) != snapshots {
			return fmt.Errorf("%s: series %q has %d snapshots, want %d",
				path, id, len(series[id]), snapshots)
		}
	}

	header := append([]string{"snapshot"}, ids...)
	rows := make([][]string, snapshots)
	for t := 0; t < snapshots; t++ {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(t))
		for _, id := range ids {
			row = append(row, ftoa(series[id][t]))
		}
		rows[t] = row
	}
	return writeTable(path, header, rows)
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
