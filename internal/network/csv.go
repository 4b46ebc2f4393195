package network

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSV table loaders. The on-disk layout is one file per component table
// plus wide per-snapshot series files (one column per asset):
//
//	buses.csv               id,country,x,y
//	lines.csv               id,bus0,bus1,x,r,s_nom,length,capital_cost
//	generators.csv          id,bus,carrier,p_nom,p_nom_max
//	generators-p_max_pu.csv snapshot,<generator id>...
//	storage_units.csv       id,bus,carrier,p_nom
//	loads.csv               id,bus
//	loads-p_set.csv         snapshot,<load id>...

// LoadDir reads all component tables from dir and returns the indexed
// network. Series files are optional; component files are not.
func LoadDir(dir string) (*Network, error) {
	buses, err := loadBuses(filepath.Join(dir, "buses.csv"))
	if err != nil {
		return nil, err
	}
	lines, err := loadLines(filepath.Join(dir, "lines.csv"))
	if err != nil {
		return nil, err
	}
	gens, err := loadGenerators(filepath.Join(dir, "generators.csv"))
	if err != nil {
		return nil, err
	}
	storage, err := loadStorage(filepath.Join(dir, "storage_units.csv"))
	if err != nil {
		return nil, err
	}
	loads, err := loadLoads(filepath.Join(dir, "loads.csv"))
	if err != nil {
		return nil, err
	}

	if err := attachSeries(filepath.Join(dir, "generators-p_max_pu.csv"), func(id string, series []float64) bool {
		for i := range gens {
			if gens[i].ID == id {
				gens[i].MaxPU = series
				return true
			}
		}
		return false
	}); err != nil {
		return nil, err
	}
	if err := attachSeries(filepath.Join(dir, "loads-p_set.csv"), func(id string, series []float64) bool {
		for i := range loads {
			if loads[i].ID == id {
				loads[i].PSet = series
				return true
			}
		}
		return false
	}); err != nil {
		return nil, err
	}

	return New(buses, lines, gens, storage, loads)
}

func readTable(path string, want int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = want
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: empty table", path)
	}
	return rows[1:], nil // drop header
}

func parseFloat(path, field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: bad %s value %q: %w", path, field, s, err)
	}
	return v, nil
}

func loadBuses(path string) ([]Bus, error) {
	rows, err := readTable(path, 4)
	if err != nil {
		return nil, err
	}
	buses := make([]Bus, 0, len(rows))
	for _, row := range rows {
		x, err := parseFloat(path, "x", row[2])
		if err != nil {
			return nil, err
		}
		y, err := parseFloat(path, "y", row[3])
		if err != nil {
			return nil, err
		}
		buses = append(buses, Bus{ID: row[0], Country: row[1], X: x, Y: y})
	}
	return buses, nil
}

func loadLines(path string) ([]Line, error) {
	rows, err := readTable(path, 8)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(rows))
	for _, row := range rows {
		vals := make([]float64, 5)
		for i, field := range []string{"x", "r", "s_nom", "length", "capital_cost"} {
			v, err := parseFloat(path, field, row[3+i])
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		lines = append(lines, Line{
			ID: row[0], Bus0: row[1], Bus1: row[2],
			Reactance: vals[0], Resistance: vals[1], SNom: vals[2],
			Length: vals[3], CapitalCost: vals[4],
		})
	}
	return lines, nil
}

func loadGenerators(path string) ([]Generator, error) {
	rows, err := readTable(path, 5)
	if err != nil {
		return nil, err
	}
	gens := make([]Generator, 0, len(rows))
	for _, row := range rows {
		pnom, err := parseFloat(path, "p_nom", row[3])
		if err != nil {
			return nil, err
		}
		pmax, err := parseFloat(path, "p_nom_max", row[4])
		if err != nil {
			return nil, err
		}
		gens = append(gens, Generator{ID: row[0], Bus: row[1], Carrier: row[2], PNom: pnom, PNomMax: pmax})
	}
	return gens, nil
}

func loadStorage(path string) ([]StorageUnit, error) {
	rows, err := readTable(path, 4)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	units := make([]StorageUnit, 0, len(rows))
	for _, row := range rows {
		pnom, err := parseFloat(path, "p_nom", row[3])
		if err != nil {
			return nil, err
		}
		units = append(units, StorageUnit{ID: row[0], Bus: row[1], Carrier: row[2], PNom: pnom})
	}
	return units, nil
}

func loadLoads(path string) ([]Load, error) {
	rows, err := readTable(path, 2)
	if err != nil {
		return nil, err
	}
	loads := make([]Load, 0, len(rows))
	for _, row := range rows {
		loads = append(loads, Load{ID: row[0], Bus: row[1]})
	}
	return loads, nil
}

// attachSeries reads a wide series table (snapshot column + one column per
// asset id) and hands each column to attach. Missing files are skipped;
// unknown column ids are an error since they indicate a mismatched export.
func attachSeries(path string, attach func(id string, series []float64) bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	for col := 1; col < len(header); col++ {
		series := make([]float64, 0, len(rows)-1)
		for _, row := range rows[1:] {
			v, err := parseFloat(path, header[col], row[col])
			if err != nil {
				return err
			}
			series = append(series, v)
		}
		if !attach(header[col], series) {
			return fmt.Errorf("%s: series column %q matches no component", path, header[col])
		}
	}
	return nil
}
