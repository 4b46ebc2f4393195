package network

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "buses.csv",
		"id,country,x,y\na,DE,7,51\nb,DE,8,51.5\nc,FR,2,48\n")
	writeFixture(t, dir, "lines.csv",
		"id,bus0,bus1,x,r,s_nom,length,capital_cost\nl1,a,b,0.1,0.01,1000,80,120\n")
	writeFixture(t, dir, "generators.csv",
		"id,bus,carrier,p_nom,p_nom_max\ng1,a,OCGT,100,150\ng2,c,solar,50,200\n")
	writeFixture(t, dir, "storage_units.csv",
		"id,bus,carrier,p_nom\ns1,b,PHS,40\n")
	writeFixture(t, dir, "loads.csv",
		"id,bus\nld1,a\nld2,c\n")
	writeFixture(t, dir, "generators-p_max_pu.csv",
		"snapshot,g2\n0,0.1\n1,0.5\n")
	writeFixture(t, dir, "loads-p_set.csv",
		"snapshot,ld1,ld2\n0,10,30\n1,20,30\n")
	return dir
}

func TestLoadDir(t *testing.T) {
	net, err := LoadDir(fixtureDir(t))
	require.NoError(t, err)

	require.Len(t, net.Buses, 3)
	assert.Equal(t, Bus{ID: "b", Country: "DE", X: 8, Y: 51.5}, net.Buses[1])

	require.Len(t, net.Lines, 1)
	assert.Equal(t, Line{
		ID: "l1", Bus0: "a", Bus1: "b",
		Reactance: 0.1, Resistance: 0.01, SNom: 1000, Length: 80, CapitalCost: 120,
	}, net.Lines[0])

	require.Len(t, net.Gens, 2)
	assert.Empty(t, net.Gens[0].MaxPU, "firm capacity carries no series")
	assert.Equal(t, []float64{0.1, 0.5}, net.Gens[1].MaxPU)

	require.Len(t, net.Loads, 2)
	assert.Equal(t, []float64{10, 20}, net.Loads[0].PSet)
	assert.Equal(t, []float64{30, 30}, net.Loads[1].PSet)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing_component_table", func(t *testing.T) {
		dir := fixtureDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "lines.csv")))
		_, err := LoadDir(dir)
		require.Error(t, err)
	})

	t.Run("missing_series_is_fine", func(t *testing.T) {
		dir := fixtureDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "generators-p_max_pu.csv")))
		net, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, net.Gens[1].MaxPU)
	})

	t.Run("missing_storage_is_fine", func(t *testing.T) {
		dir := fixtureDir(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "storage_units.csv")))
		net, err := LoadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, net.Storage)
	})

	t.Run("orphan_series_column", func(t *testing.T) {
		dir := fixtureDir(t)
		writeFixture(t, dir, "generators-p_max_pu.csv", "snapshot,ghost\n0,0.5\n")
		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "matches no component")
	})

	t.Run("bad_float", func(t *testing.T) {
		dir := fixtureDir(t)
		writeFixture(t, dir, "buses.csv", "id,country,x,y\na,DE,seven,51\n")
		_, err := LoadDir(dir)
		require.Error(t, err)
	})
}

func TestWriteDirRoundTrip(t *testing.T) {
	orig, err := LoadDir(fixtureDir(t))
	require.NoError(t, err)

	out := t.TempDir()
	require.NoError(t, WriteDir(orig, out))

	reread, err := LoadDir(out)
	require.NoError(t, err)

	if diff := cmp.Diff(orig.Buses, reread.Buses); diff != "" {
		t.Errorf("buses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Lines, reread.Lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Gens, reread.Gens); diff != "" {
		t.Errorf("generators mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Storage, reread.Storage); diff != "" {
		t.Errorf("storage mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(orig.Loads, reread.Loads); diff != "" {
		t.Errorf("loads mismatch (-want +got):\n%s", diff)
	}
}
