// internal/pipeline/observer.go
package pipeline

import (
	"time"

	"phylorun/internal/runctx"
)

// Observer is told about run progress. Errors returned by an Observer are
// logged and never fail the run.
type Observer interface {
	RunStarted(rc *runctx.Context, at time.Time) error
	StageFinished(runID string, res StageResult) error
	RunFinished(rep *Report) error
}
