// Package monitor renders clustering results for visual inspection:
// static PNG maps via gonum/plot and interactive HTML maps via
// go-echarts. Both views colour buses by their assigned cluster so
// fragmented or mis-sized clusters stand out immediately.
package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/volta-data/gridreduce/internal/network"
)

// MapPlotter draws geographic scatter maps of a network before and
// after reduction.
type MapPlotter struct {
	outputDir string
}

// NewMapPlotter creates a plotter writing PNGs under outputDir. The
// directory is created on first use.
func NewMapPlotter(outputDir string) *MapPlotter {
	return &MapPlotter{outputDir: outputDir}
}

// PlotBusmap draws every bus of the original network, coloured by the
// cluster it maps to, and writes <name>.png. Returns the written path.
func (mp *MapPlotter) PlotBusmap(net *network.Network, busmap map[string]string, name string) (string, error) {
	if err := os.MkdirAll(mp.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Busmap (%d buses, %d clusters)", len(net.Buses), countClusters(busmap))
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	// Group buses by cluster label so each cluster becomes one scatter
	// series with its own colour.
	byCluster := make(map[string]plotter.XYs)
	for _, b := range net.Buses {
		cl, ok := busmap[b.ID]
		if !ok {
			return "", fmt.Errorf("bus %s missing from busmap", b.ID)
		}
		byCluster[cl] = append(byCluster[cl], plotter.XY{X: b.X, Y: b.Y})
	}

	labels := make([]string, 0, len(byCluster))
	for cl := range byCluster {
		labels = append(labels, cl)
	}
	sort.Strings(labels)

	colors := generateColors(len(labels))
	for i, cl := range labels {
		s, err := plotter.NewScatter(byCluster[cl])
		if err != nil {
			return "", fmt.Errorf("cluster %s: %w", cl, err)
		}
		s.GlyphStyle.Color = colors[i]
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
	}

	out := filepath.Join(mp.outputDir, name+".png")
	if err := p.Save(10*vg.Inch, 8*vg.Inch, out); err != nil {
		return "", fmt.Errorf("save busmap plot: %w", err)
	}
	return out, nil
}

// PlotReduced draws the reduced network: cluster buses as points and
// aggregated corridors as lines weighted by thermal rating.
func (mp *MapPlotter) PlotReduced(reduced *network.Network, name string) (string, error) {
	if err := os.MkdirAll(mp.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reduced network (%d buses, %d lines)", len(reduced.Buses), len(reduced.Lines))
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	pos := make(map[string][2]float64, len(reduced.Buses))
	for _, b := range reduced.Buses {
		pos[b.ID] = [2]float64{b.X, b.Y}
	}

	// Scale line widths against the largest corridor so maps of very
	// different systems stay readable.
	maxSNom := 0.0
	for _, l := range reduced.Lines {
		if l.SNom > maxSNom {
			maxSNom = l.SNom
		}
	}
	if maxSNom == 0 {
		maxSNom = 1
	}

	for _, l := range reduced.Lines {
		p0, ok0 := pos[l.Bus0]
		p1, ok1 := pos[l.Bus1]
		if !ok0 || !ok1 {
			continue
		}
		ln, err := plotter.NewLine(plotter.XYs{
			{X: p0[0], Y: p0[1]},
			{X: p1[0], Y: p1[1]},
		})
		if err != nil {
			return "", fmt.Errorf("line %s: %w", l.ID, err)
		}
		ln.Color = color.RGBA{R: 100, G: 100, B: 100, A: 180}
		ln.Width = vg.Points(0.5 + 2.5*l.SNom/maxSNom)
		p.Add(ln)
	}

	pts := make(plotter.XYs, 0, len(reduced.Buses))
	for _, b := range reduced.Buses {
		pts = append(pts, plotter.XY{X: b.X, Y: b.Y})
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("bus scatter: %w", err)
	}
	s.GlyphStyle.Color = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)

	out := filepath.Join(mp.outputDir, name+".png")
	if err := p.Save(10*vg.Inch, 8*vg.Inch, out); err != nil {
		return "", fmt.Errorf("save reduced plot: %w", err)
	}
	return out, nil
}

func countClusters(busmap map[string]string) int {
	seen := make(map[string]struct{}, len(busmap))
	for _, cl := range busmap {
		seen[cl] = struct{}{}
	}
	return len(seen)
}

// generateColors creates a palette of distinct colours, one per cluster.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
