// Package report writes per-episode training statistics to an Excel
// workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/CodeStranger-Fred/slither/mdp"
)

const (
	episodeSheet = "Episodes"
	summarySheet = "Summary"
)

var episodeHeader = []interface{}{
	"episode", "steps", "reward", "length", "max_length", "game_over", "epsilon", "states",
}

// Workbook collects one row per episode. It is an mdp.Observer.
type Workbook struct {
	mu   sync.Mutex
	f    *excelize.File
	rows int
}

func New() (*Workbook, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(episodeSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", episodeSheet, err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", summarySheet, err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	header := episodeHeader
	if err := f.SetSheetRow(episodeSheet, "A1", &header); err != nil {
		return nil, err
	}
	return &Workbook{f: f, rows: 1}, nil
}

func (w *Workbook) ObserveEpisode(r mdp.EpisodeResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.rows++
	row := []interface{}{
		r.Episode,
		r.Stats.Steps,
		r.Stats.Reward,
		r.Stats.Length,
		r.Stats.MaxLength,
		r.Stats.Done,
		r.Epsilon,
		r.States,
	}
	cell := fmt.Sprintf("A%d", w.rows)
	if err := w.f.SetSheetRow(episodeSheet, cell, &row); err != nil {
		return fmt.Errorf("write report row %d: %w", w.rows, err)
	}
	return nil
}

// Episodes is the number of rows written so far.
func (w *Workbook) Episodes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows - 1
}

// Save writes the run summary sheet and saves the workbook to path.
func (w *Workbook) Save(path string, run mdp.RunSummary, agent mdp.Summary, md mdp.Metadata) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rows := [][]interface{}{
		{"episodes", run.Episodes},
		{"avg_reward", run.AvgReward},
		{"avg_steps", run.AvgSteps},
		{"best_reward", run.BestReward},
		{"max_length", run.BestLength},
		{"states", agent.States},
		{"epsilon", agent.Epsilon},
		{"alpha", agent.Alpha},
		{"gamma", agent.Gamma},
	}
	if id, ok := md["run_id"]; ok {
		rows = append(rows, []interface{}{"run_id", id})
	}
	for i := range rows {
		if err := w.f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}
