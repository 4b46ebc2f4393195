package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volta-data/gridreduce/internal/cluster"
	"github.com/volta-data/gridreduce/internal/config"
	"github.com/volta-data/gridreduce/internal/network"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// testInputDir writes a six-bus, two-country network: two German blobs
// of two buses each plus a French pair.
func testInputDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "buses.csv", `id,country,x,y
d1,DE,7.0,51.0
d2,DE,7.1,51.1
d3,DE,10.0,53.0
d4,DE,10.1,53.1
f1,FR,2.0,48.0
f2,FR,2.1,48.1
`)
	writeFile(t, dir, "lines.csv", `id,bus0,bus1,x,r,s_nom,length,capital_cost
l1,d1,d2,0.1,0.01,1000,20,10
l2,d2,d3,0.4,0.04,500,300,50
l3,d3,d4,0.1,0.01,1000,20,10
l4,f1,f2,0.1,0.01,800,20,10
`)
	writeFile(t, dir, "generators.csv", `id,bus,carrier,p_nom,p_nom_max
g1,d1,OCGT,100,100
g2,f1,solar,50,200
`)
	writeFile(t, dir, "storage_units.csv", "id,bus,carrier,p_nom\ns1,d3,PHS,40\n")
	writeFile(t, dir, "loads.csv", "id,bus\nld1,d1\nld2,d3\nld3,f1\n")
	writeFile(t, dir, "loads-p_set.csv", "snapshot,ld1,ld2,ld3\n0,10,20,30\n1,10,20,30\n")
	return dir
}

func TestWriteAndReadBusmapCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busmap.csv")
	busmap := map[string]string{"b1": "DE0 0", "b2": "DE0 1", "a9": "DE0 0"}

	require.NoError(t, writeMapCSV(path, [2]string{"bus", "cluster"}, busmap))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Rows come out sorted by id.
	assert.Equal(t, "bus,cluster\na9,DE0 0\nb1,DE0 0\nb2,DE0 1\n", string(data))

	got, err := readBusmapCSV(path)
	require.NoError(t, err)
	assert.Equal(t, cluster.Busmap(busmap), got)
}

func TestReadBusmapCSVErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, err := readBusmapCSV(filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
	})

	t.Run("header_only", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "busmap.csv")
		require.NoError(t, os.WriteFile(path, []byte("bus,cluster\n"), 0644))
		_, err := readBusmapCSV(path)
		require.Error(t, err)
	})

	t.Run("duplicate_bus", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "busmap.csv")
		require.NoError(t, os.WriteFile(path, []byte("bus,cluster\na,x\na,y\n"), 0644))
		_, err := readBusmapCSV(path)
		require.Error(t, err)
	})
}

func TestBuildBusmapIdentityShortcut(t *testing.T) {
	net, err := network.LoadDir(testInputDir(t))
	require.NoError(t, err)
	net.DetermineTopology()

	clusters := len(net.Buses)
	cfg := &config.RunConfig{Clusters: &clusters}

	busmap, deviations, err := buildBusmap(cfg, net)
	require.NoError(t, err)
	assert.Empty(t, deviations)
	for _, b := range net.Buses {
		assert.Equal(t, b.ID, busmap[b.ID])
	}
}

func TestBuildBusmapPipeline(t *testing.T) {
	net, err := network.LoadDir(testInputDir(t))
	require.NoError(t, err)
	net.DetermineTopology()

	clusters := 3
	nInit := 50
	cfg := &config.RunConfig{Clusters: &clusters, KMeansNInit: &nInit}

	busmap, deviations, err := buildBusmap(cfg, net)
	require.NoError(t, err)
	assert.Empty(t, deviations)
	require.NoError(t, busmap.Validate(net))
	assert.Len(t, busmap.Labels(), 3)

	// The German blobs collapse into separate clusters, and the French
	// pair gets the remaining single cluster.
	assert.Equal(t, busmap["d1"], busmap["d2"])
	assert.Equal(t, busmap["f1"], busmap["f2"])
	assert.NotEqual(t, busmap["d1"], busmap["f1"])
}

func TestBuildBusmapCustom(t *testing.T) {
	net, err := network.LoadDir(testInputDir(t))
	require.NoError(t, err)
	net.DetermineTopology()

	path := filepath.Join(t.TempDir(), "busmap.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"bus,cluster\nd1,u\nd2,u\nd3,v\nd4,v\nf1,w\nf2,w\n"), 0644))
	cfg := &config.RunConfig{CustomBusmap: &path}

	busmap, _, err := buildBusmap(cfg, net)
	require.NoError(t, err)
	assert.Len(t, busmap.Labels(), 3)

	t.Run("incomplete_busmap_rejected", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(bad, []byte("bus,cluster\nd1,u\n"), 0644))
		cfg := &config.RunConfig{CustomBusmap: &bad}
		_, _, err := buildBusmap(cfg, net)
		require.Error(t, err)
	})
}

func TestApplyFlagOverrides(t *testing.T) {
	// flag.Set marks the flag as explicitly provided, so flag.Visit
	// picks it up exactly as a command-line invocation would.
	require.NoError(t, flag.Set("solver", "greedy"))
	require.NoError(t, flag.Set("algorithm", "spectral"))

	cfg := config.EmptyRunConfig()
	applyFlagOverrides(cfg)

	require.NotNil(t, cfg.Solver)
	assert.Equal(t, "greedy", *cfg.Solver)
	require.NotNil(t, cfg.Algorithm)
	assert.Equal(t, "spectral", *cfg.Algorithm)
	assert.Nil(t, cfg.Clusters, "untouched flags must not override")
}

func TestRunEndToEnd(t *testing.T) {
	input := testInputDir(t)
	out := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	clusters := 3
	nInit := 50
	cfg := &config.RunConfig{
		Clusters:    &clusters,
		KMeansNInit: &nInit,
		OutputDir:   &out,
		DBPath:      &dbPath,
	}

	old := *inputDir
	*inputDir = input
	defer func() { *inputDir = old }()

	require.NoError(t, run(cfg))

	for _, name := range []string{"busmap.csv", "linemap.csv", "reduced/buses.csv", "reduced/lines.csv"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}

	reduced, err := network.LoadDir(filepath.Join(out, "reduced"))
	require.NoError(t, err)
	assert.Len(t, reduced.Buses, 3)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "run database created")
}
