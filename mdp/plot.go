package mdp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Plot renders one line per series, reward against episode, as an HTML page.
func Plot(w io.Writer, title string, series ...AverageRewards) error {
	if len(series) == 0 {
		return errors.New("nothing to plot")
	}
	numEpisodes := 0
	for _, s := range series {
		if len(s.Rewards) > numEpisodes {
			numEpisodes = len(s.Rewards)
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	episodes := make([]string, 0, numEpisodes)
	for i := 1; i <= numEpisodes; i++ {
		episodes = append(episodes, fmt.Sprintf("%d", i))
	}
	line = line.SetXAxis(episodes)

	for _, s := range series {
		items := make([]opts.LineData, 0, len(s.Rewards))
		for _, r := range s.Rewards {
			items = append(items, opts.LineData{Value: r})
		}
		line.AddSeries(s.Name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}

// PlotFile writes Plot's output to path, creating its directory.
func PlotFile(path, title string, series ...AverageRewards) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart %s: %w", path, err)
	}
	if err := Plot(f, title, series...); err != nil {
		f.Close()
		return fmt.Errorf("render chart %s: %w", path, err)
	}
	return f.Close()
}
