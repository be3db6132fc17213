package writers

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"phylorun/internal/jsonlutil"
	"phylorun/internal/jsonutil"
	"phylorun/internal/runlog"
	"phylorun/pkg/api"
)

func init() {
	RegisterHistory("text", WriteHistoryText)
	RegisterHistory("json", WriteHistoryJSON)
	RegisterHistory("jsonl", WriteHistoryJSONL)
}

var historyHeader = []string{"RUN", "STARTED", "STATE", "DURATION", "STAGE", "IMAGE"}

// WriteHistoryText writes runs as an aligned table. The header is bold and
// failed runs are red when w is a terminal.
func WriteHistoryText(w io.Writer, runs []runlog.Run) error {
	r := lipgloss.NewRenderer(w)
	cell := r.NewStyle().PaddingRight(2)
	header := cell.Bold(true)
	failed := cell.Foreground(lipgloss.Color("1"))

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).BorderBottom(false).
		BorderLeft(false).BorderRight(false).
		BorderHeader(false).BorderColumn(false).
		Headers(historyHeader...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case runs[row].State == "failed":
				return failed
			}
			return cell
		})
	for _, run := range runs {
		t.Row(
			run.ID,
			run.Started.Local().Format("2006-01-02 15:04:05"),
			run.State,
			runDuration(run),
			run.FailedStage,
			run.Image,
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// WriteHistoryJSON writes runs as a JSON array of api.RunV1.
func WriteHistoryJSON(w io.Writer, runs []runlog.Run) error {
	out := make([]api.RunV1, 0, len(runs))
	for _, r := range runs {
		out = append(out, ToAPI(r))
	}
	return jsonutil.EncodePretty(w, out)
}

// WriteHistoryJSONL writes one api.RunV1 per line.
func WriteHistoryJSONL(w io.Writer, runs []runlog.Run) error {
	return jsonlutil.Write(w, runs, ToAPI)
}

// ToAPI converts a ledger row to its stable wire form.
func ToAPI(r runlog.Run) api.RunV1 {
	v := api.RunV1{
		ID:          r.ID,
		Input:       r.Input,
		Dir:         r.Dir,
		Image:       r.Image,
		State:       r.State,
		FailedStage: r.FailedStage,
		Error:       r.Error,
		StartedAt:   r.Started.UTC().Format(time.RFC3339),
	}
	if !r.Finished.IsZero() {
		v.FinishedAt = r.Finished.UTC().Format(time.RFC3339)
	}
	for _, s := range r.Stages {
		v.Stages = append(v.Stages, api.StageV1{
			Stage:      s.Stage,
			DurationMS: float64(s.Duration) / float64(time.Millisecond),
			Error:      s.Error,
		})
	}
	return v
}

func runDuration(r runlog.Run) string {
	if r.Finished.IsZero() {
		return "-"
	}
	return r.Finished.Sub(r.Started).Round(time.Millisecond).String()
}
