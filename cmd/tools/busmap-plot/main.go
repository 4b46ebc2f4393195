// busmap-plot renders an existing busmap against its network as a PNG
// scatter map and an interactive HTML map, without re-running the
// clustering pipeline. Useful for inspecting stored or hand-edited
// busmaps.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/volta-data/gridreduce/internal/monitor"
	"github.com/volta-data/gridreduce/internal/network"
	"github.com/volta-data/gridreduce/internal/store"
)

var (
	inputDir   = flag.String("input", "network", "Directory holding the network CSV tables")
	busmapPath = flag.String("busmap", "", "Busmap CSV to render")
	dbPath     = flag.String("db", "", "Run database; use with -run instead of -busmap")
	runID      = flag.String("run", "", "Run id to load the busmap from the database")
	outputDir  = flag.String("output", "", "Output directory (default plots/<timestamp>)")
)

func main() {
	flag.Parse()

	if (*busmapPath == "") == (*dbPath == "" || *runID == "") {
		log.Fatal("need either -busmap, or -db together with -run")
	}

	net, err := network.LoadDir(*inputDir)
	if err != nil {
		log.Fatalf("load network: %v", err)
	}
	net.DetermineTopology()

	busmap, err := loadBusmap()
	if err != nil {
		log.Fatal(err)
	}

	out := *outputDir
	if out == "" {
		out = filepath.Join("plots", monitor.FormatTimestamp(time.Now()))
	}

	mp := monitor.NewMapPlotter(out)
	png, err := mp.PlotBusmap(net, busmap, "busmap")
	if err != nil {
		log.Fatalf("render png: %v", err)
	}
	html, err := monitor.RenderBusmapHTML(net, busmap, out, "busmap")
	if err != nil {
		log.Fatalf("render html: %v", err)
	}
	log.Printf("wrote %s and %s", png, html)
}

func loadBusmap() (map[string]string, error) {
	if *busmapPath != "" {
		return readBusmapCSV(*busmapPath)
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	busmap, err := store.NewRunStore(db).GetBusmap(*runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", *runID, err)
	}
	if len(busmap) == 0 {
		return nil, fmt.Errorf("run %s has no busmap", *runID)
	}
	return busmap, nil
}

func readBusmapCSV(path string) (map[string]string, error) {
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

	busmap := make(map[string]string, len(rows)-1)
	for _, row := range rows[1:] {
		if _, dup := busmap[row[0]]; dup {
			return nil, fmt.Errorf("busmap %s: duplicate bus %s", path, row[0])
		}
		busmap[row[0]] = row[1]
	}
	return busmap, nil
}
