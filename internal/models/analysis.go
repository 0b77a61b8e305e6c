package models

// AnalysisStatus enumerates the lifecycle of an analysis task.
type AnalysisStatus string

const (
	AnalysisIdle      AnalysisStatus = "idle"
	AnalysisRunning   AnalysisStatus = "running"
	AnalysisSucceeded AnalysisStatus = "succeeded"
	AnalysisFailed    AnalysisStatus = "failed"
)

// AnalysisParams are the inputs to the analyze-store-enhance
// operation. Retry replays these byte-identically.
type AnalysisParams struct {
	SalespageURL string `json:"salespage_url"`
	ProductName  string `json:"product_name"`
	AutoEnhance  bool   `json:"auto_enhance"`
}

// AnalysisTask is an immutable snapshot of the current analysis state.
// The controller replaces the snapshot rather than mutating it, so a
// reader never observes a half-updated task.
type AnalysisTask struct {
	Status          AnalysisStatus `json:"status"`
	ProgressPercent float64        `json:"progress_percent"`
	PhaseLabel      string         `json:"phase_label"`
	IntelligenceID  string         `json:"intelligence_id,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	Enhanced        bool           `json:"enhanced"`
	Error           string         `json:"error,omitempty"`
}

// AnalysisResult is what the backend returns when the combined
// analyze-store-enhance operation succeeds.
type AnalysisResult struct {
	IntelligenceID  string  `json:"intelligence_id"`
	ConfidenceScore float64 `json:"confidence_score"`
	Enhanced        bool    `json:"enhanced"`
}
