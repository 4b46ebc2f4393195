// Command gridreduce reduces a spatially resolved electrical network to
// a requested number of representative buses. It allocates a cluster
// budget to every country/sub-network group, partitions each group with
// the configured strategy, aggregates buses, lines and assets over the
// resulting busmap, and writes the reduced network plus the busmap and
// linemap tables.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/volta-data/gridreduce/internal/cluster"
	"github.com/volta-data/gridreduce/internal/config"
	"github.com/volta-data/gridreduce/internal/monitor"
	"github.com/volta-data/gridreduce/internal/network"
	"github.com/volta-data/gridreduce/internal/reduce"
	"github.com/volta-data/gridreduce/internal/store"
	"github.com/volta-data/gridreduce/internal/version"
)

var (
	inputDir      = flag.String("input", "network", "Directory holding the network CSV tables")
	configPath    = flag.String("config", "", "JSON run config (optional; flags override it)")
	clustersFlag  = flag.Int("clusters", 0, "Requested total cluster count")
	algorithmFlag = flag.String("algorithm", "", "Clustering algorithm: kmeans, spectral, hac, louvain or newman")
	solverFlag    = flag.String("solver", "", "Cluster budget solver backend")
	seedFlag      = flag.Int64("seed", 0, "Random seed for the randomized strategies")
	outputFlag    = flag.String("output", "", "Output directory")
	dbFlag        = flag.String("db", "", "SQLite run database path (optional)")
	plotsFlag     = flag.Bool("plots", false, "Write PNG and HTML maps of the result")
	busmapFlag    = flag.String("busmap", "", "Custom busmap CSV; skips allocation and clustering")
	versionFlag   = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("gridreduce %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := config.EmptyRunConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadRunConfig(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("reduce failed: %v", err)
	}
}

// applyFlagOverrides copies explicitly set flags into the config, so the
// precedence is defaults < config file < command line.
func applyFlagOverrides(cfg *config.RunConfig) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "clusters":
			cfg.Clusters = clustersFlag
		case "algorithm":
			cfg.Algorithm = algorithmFlag
		case "solver":
			cfg.Solver = solverFlag
		case "seed":
			cfg.Seed = seedFlag
		case "output":
			cfg.OutputDir = outputFlag
		case "db":
			cfg.DBPath = dbFlag
		case "plots":
			cfg.Plots = plotsFlag
		case "busmap":
			cfg.CustomBusmap = busmapFlag
		}
	})
}

func run(cfg *config.RunConfig) error {
	net, err := network.LoadDir(*inputDir)
	if err != nil {
		return err
	}
	net.DetermineTopology()
	log.Printf("loaded network: %d buses, %d lines, %d groups",
		len(net.Buses), len(net.Lines), len(net.Groups()))

	busmap, deviations, err := buildBusmap(cfg, net)
	if err != nil {
		return err
	}

	result, err := reduce.Reduce(net, busmap, reduce.Options{
		LineLengthFactor: cfg.GetLineLengthFactor(),
		ExtendedLinkCost: cfg.GetExtendedLinkCost(),
		PotentialMode:    cfg.GetPotentialMode(),
	})
	if err != nil {
		return err
	}
	effective := len(result.Net.Buses)
	log.Printf("reduced to %d buses, %d lines", effective, len(result.Net.Lines))

	outDir := cfg.GetOutputDir()
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	if err := writeMapCSV(filepath.Join(outDir, "busmap.csv"),
		[2]string{"bus", "cluster"}, busmap); err != nil {
		return err
	}
	if err := writeMapCSV(filepath.Join(outDir, "linemap.csv"),
		[2]string{"line", "new_line"}, result.Linemap); err != nil {
		return err
	}
	if err := network.WriteDir(result.Net, filepath.Join(outDir, "reduced")); err != nil {
		return err
	}

	if dbPath := cfg.GetDBPath(); dbPath != "" {
		if err := persistRun(cfg, dbPath, effective, busmap, result.Linemap, deviations); err != nil {
			return err
		}
	}

	if cfg.GetPlots() {
		plotDir := filepath.Join(outDir, "plots")
		mp := monitor.NewMapPlotter(plotDir)
		if _, err := mp.PlotBusmap(net, busmap, "busmap"); err != nil {
			return err
		}
		if _, err := mp.PlotReduced(result.Net, "reduced"); err != nil {
			return err
		}
		if _, err := monitor.RenderBusmapHTML(net, busmap, plotDir, "busmap"); err != nil {
			return err
		}
		log.Printf("wrote plots to %s", plotDir)
	}

	return nil
}

// buildBusmap produces the busmap via whichever path the config selects:
// a caller-supplied busmap, the identity shortcut when the requested
// count equals the bus count, or the full allocate-and-partition
// pipeline.
func buildBusmap(cfg *config.RunConfig, net *network.Network) (cluster.Busmap, []cluster.Deviation, error) {
	if path := cfg.GetCustomBusmap(); path != "" {
		busmap, err := readBusmapCSV(path)
		if err != nil {
			return nil, nil, err
		}
		if err := busmap.Validate(net); err != nil {
			return nil, nil, err
		}
		log.Printf("using custom busmap %s (%d clusters)", path, len(busmap.Labels()))
		return busmap, nil, nil
	}

	k := cfg.GetClusters()
	if k == len(net.Buses) {
		log.Printf("requested cluster count equals bus count, keeping network as-is")
		return cluster.Identity(net), nil, nil
	}

	solver, err := cluster.SolverByName(cfg.GetSolver())
	if err != nil {
		return nil, nil, err
	}

	groups := net.Groups()
	shares := cluster.LoadShares(net, groups)
	budget, err := cluster.Allocate(groups, shares, k, cfg.FocusWeights, solver)
	if err != nil {
		return nil, nil, err
	}

	builder, err := cluster.NewBuilder(net, cfg.GetAlgorithm(), cluster.Options{
		Seed: cfg.GetSeed(),
		KMeans: cluster.KMeansOptions{
			NInit:   cfg.GetKMeansNInit(),
			MaxIter: cfg.GetKMeansMaxIter(),
			Tol:     cfg.GetKMeansTol(),
		},
		Feature: cluster.FeatureOptions{
			Carriers: cfg.GetFeatureCarriers(),
			Mode:     cfg.GetFeatureMode(),
		},
	})
	if err != nil {
		return nil, nil, err
	}

	return builder.Build(groups, budget)
}

// persistRun records the run and its busmap/linemap in the run database.
func persistRun(cfg *config.RunConfig, dbPath string, effective int,
	busmap cluster.Busmap, linemap map[string]string, deviations []cluster.Deviation) error {

	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	params, err := json.Marshal(struct {
		*config.RunConfig
		Deviations []cluster.Deviation `json:"deviations,omitempty"`
	}{cfg, deviations})
	if err != nil {
		return err
	}

	runs := store.NewRunStore(db)
	rec := &store.Run{
		Algorithm:         cfg.GetAlgorithm(),
		Solver:            cfg.GetSolver(),
		RequestedClusters: cfg.GetClusters(),
		EffectiveClusters: effective,
		ParamsJSON:        params,
	}
	if err := runs.InsertRun(rec); err != nil {
		return err
	}
	if err := runs.SaveBusmap(rec.RunID, busmap); err != nil {
		return err
	}
	if err := runs.SaveLinemap(rec.RunID, linemap); err != nil {
		return err
	}
	log.Printf("recorded run %s", rec.RunID)
	return nil
}
