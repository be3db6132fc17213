// pkg/api/runs_v1.go
package api

// RunV1 is the stable JSON schema for one ledger entry.
// Keep fields, names, and types stable. Add new fields only with ",omitempty".
type RunV1 struct {
	ID          string    `json:"id"`
	Input       string    `json:"input"`
	Dir         string    `json:"dir"`
	Image       string    `json:"image"`
	State       string    `json:"state"` // "running" | "done" | "failed"
	FailedStage string    `json:"failed_stage,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   string    `json:"started_at"`            // RFC 3339, UTC
	FinishedAt  string    `json:"finished_at,omitempty"` // RFC 3339, UTC
	Stages      []StageV1 `json:"stages,omitempty"`
}

// StageV1 is one stage of a run.
type StageV1 struct {
	Stage      string  `json:"stage"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}
