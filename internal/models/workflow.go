package models

import "time"

// GenerationRequest is the normalized payload handed to the
// generation backend. Built fresh per call by the request composer.
type GenerationRequest struct {
	CampaignID     string                 `json:"campaign_id"`
	ContentType    string                 `json:"content_type"`
	IntelligenceID string                 `json:"intelligence_id"`
	Preferences    map[string]interface{} `json:"preferences"`
}

// GenerationResult is the backend's response to one generation call.
type GenerationResult struct {
	ContentID string                 `json:"content_id"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ProgressSnapshot is what auto-save persists: enough to restore a
// partially completed wizard after a reload.
type ProgressSnapshot struct {
	CurrentStep int                    `json:"current_step"`
	Trigger     string                 `json:"trigger"`
	SessionData map[string]interface{} `json:"session_data"`
	CapturedAt  time.Time              `json:"captured_at"`
}

// WorkflowStateView is the backend's read-only hydration state for a
// campaign, used to resume a session.
type WorkflowStateView struct {
	SuggestedStep      int            `json:"suggested_step"`
	WorkflowPreference string         `json:"workflow_preference"`
	ProgressSummary    map[string]int `json:"progress_summary"`
	AnalysisStatus     string         `json:"analysis_status"`
	IntelligenceID     string         `json:"intelligence_id,omitempty"`
}

// PlatformSpec describes one image platform's output format.
type PlatformSpec struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AspectRatio string `json:"aspect_ratio"`
}

// CostEstimate is the latest applied pricing lookup result.
type CostEstimate struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Platforms []string  `json:"platforms"`
	Tier      string    `json:"tier"`
	FetchedAt time.Time `json:"fetched_at"`
}
