package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/volta-data/gridreduce/internal/network"
)

// RenderBusmapHTML writes an interactive scatter map of the busmap as a
// standalone HTML file. Each cluster is assigned a numeric colour index
// so the visual map gradient separates neighbouring clusters.
func RenderBusmapHTML(net *network.Network, busmap map[string]string, outputDir, name string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	// Stable cluster -> index assignment for colouring.
	labels := make([]string, 0)
	seen := make(map[string]struct{})
	for _, cl := range busmap {
		if _, ok := seen[cl]; !ok {
			seen[cl] = struct{}{}
			labels = append(labels, cl)
		}
	}
	sort.Strings(labels)
	index := make(map[string]int, len(labels))
	for i, cl := range labels {
		index[cl] = i
	}

	data := make([]opts.ScatterData, 0, len(net.Buses))
	for _, b := range net.Buses {
		cl, ok := busmap[b.ID]
		if !ok {
			return "", fmt.Errorf("bus %s missing from busmap", b.ID)
		}
		data = append(data, opts.ScatterData{
			Name:  b.ID,
			Value: []interface{}{b.X, b.Y, index[cl]},
		})
	}

	maxIdx := float32(len(labels) - 1)
	if maxIdx <= 0 {
		maxIdx = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Busmap", Theme: "dark", Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Cluster assignment", Subtitle: fmt.Sprintf("buses=%d clusters=%d", len(data), len(labels))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Longitude", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Latitude", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        maxIdx,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)

	scatter.AddSeries("buses", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}))

	out := filepath.Join(outputDir, name+".html")
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	if err := scatter.Render(f); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}
	return out, nil
}
