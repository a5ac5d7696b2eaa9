// Package report renders training curves to an HTML page.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// Episode is one row of training history.
type Episode struct {
	Loss    float64
	Epsilon float64
	Won     bool
	Moves   int
}

// Recorder accumulates per-episode statistics. WinWindow is the size of the rolling win rate window.
type Recorder struct {
	WinWindow int
	episodes  []Episode
}

func NewRecorder(winWindow int) *Recorder {
	if winWindow < 1 {
		winWindow = 1
	}
	return &Recorder{WinWindow: winWindow}
}

func (r *Recorder) Add(e Episode) {
	r.episodes = append(r.episodes, e)
}

func (r *Recorder) Len() int {
	return len(r.episodes)
}

// WinRate returns the share of wins over the last WinWindow episodes ending at i.
func (r *Recorder) WinRate(i int) float64 {
	start := i - r.WinWindow + 1
	if start < 0 {
		start = 0
	}
	wins := 0
	for _, e := range r.episodes[start : i+1] {
		if e.Won {
			wins++
		}
	}
	return float64(wins) / float64(i+1-start)
}

func (r *Recorder) Render(w io.Writer) error {
	steps := make([]string, len(r.episodes))
	loss := make([]opts.LineData, len(r.episodes))
	epsilon := make([]opts.LineData, len(r.episodes))
	winRate := make([]opts.LineData, len(r.episodes))
	moves := make([]opts.LineData, len(r.episodes))
	for i, e := range r.episodes {
		steps[i] = fmt.Sprintf("%d", i+1)
		loss[i] = opts.LineData{Value: e.Loss}
		epsilon[i] = opts.LineData{Value: e.Epsilon}
		winRate[i] = opts.LineData{Value: r.WinRate(i)}
		moves[i] = opts.LineData{Value: e.Moves}
	}

	page := components.NewPage()
	page.SetPageTitle("Gobang DQN training")
	page.AddCharts(
		lineChart("Loss", steps, map[string][]opts.LineData{"mean loss": loss}),
		lineChart("Exploration and wins", steps, map[string][]opts.LineData{
			"epsilon":  epsilon,
			"win rate": winRate,
		}),
		lineChart("Game length", steps, map[string][]opts.LineData{"moves": moves}),
	)

	return errors.Wrap(page.Render(w), "failed to render report")
}

// WriteFile renders the report to path, creating its directory.
func (r *Recorder) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := r.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func lineChart(title string, steps []string, series map[string][]opts.LineData) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	line = line.SetXAxis(steps)
	for _, name := range sortedNames(series) {
		line.AddSeries(name, series[name])
	}
	return line
}

func sortedNames(series map[string][]opts.LineData) []string {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
