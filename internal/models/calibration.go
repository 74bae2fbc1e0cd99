package models

import (
	"time"

	"github.com/lsat-prep/calibration/internal/irt"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunConverged RunStatus = "converged"
	RunExhausted RunStatus = "exhausted"
	RunStopped   RunStatus = "stopped"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether a run will make no further progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunConverged, RunExhausted, RunStopped, RunFailed:
		return true
	}
	return false
}

type ResponseSet struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	RespondentCount int       `json:"respondent_count"`
	ItemCount       int       `json:"item_count"`
	CreatedBy       *int64    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type CalibrationRun struct {
	ID               int64      `json:"id"`
	SetID            int64      `json:"response_set_id"`
	ModelType        string     `json:"model_type"`
	Dimensions       int        `json:"dimensions"`
	MaxIter          int        `json:"max_iter"`
	LearningRate     float64    `json:"learning_rate"`
	QuadraturePoints int        `json:"quadrature_points"`
	Status           RunStatus  `json:"status"`
	Iterations       int        `json:"iterations"`
	MaxChange        *float64   `json:"max_change,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	CreatedBy        *int64     `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ── API Request/Response Types ────────────────────────────

// CreateResponseSetRequest carries a respondents x items matrix. Cells are
// 1 (correct), 0 (incorrect), or null (not answered).
type CreateResponseSetRequest struct {
	Name string   `json:"name"`
	Rows [][]*int `json:"rows"`
}

type StartRunRequest struct {
	ResponseSetID    int64   `json:"response_set_id"`
	ModelType        string  `json:"model_type"`
	Dimensions       int     `json:"dimensions"`
	MaxIter          int     `json:"max_iter"`
	LearningRate     float64 `json:"learning_rate"`
	QuadraturePoints int     `json:"quadrature_points"`
}

type RunDetailResponse struct {
	Run   CalibrationRun `json:"run"`
	Items []irt.Item     `json:"items,omitempty"`
}

type ScoreRequest struct {
	Responses []*int `json:"responses"`
}

type ScoreResponse struct {
	Theta      float64   `json:"theta"`
	RunID      int64     `json:"run_id"`
	RunStatus  RunStatus `json:"run_status"`
	ItemCount  int       `json:"item_count"`
	Iterations int       `json:"iterations"`
}

type SummaryResponse struct {
	RunID     int64  `json:"run_id"`
	Summary   string `json:"summary"`
	ModelUsed string `json:"model_used"`
}
