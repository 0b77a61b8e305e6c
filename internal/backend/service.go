// Package backend defines the collaborator boundary: every remote
// operation the workflow engine consumes, and its HTTP implementation.
package backend

import (
	"context"

	"campaign-engine/internal/models"
)

// ProgressFunc receives fractional progress for a long-running remote
// operation. Percent is non-decreasing; delivery spacing is
// unspecified.
type ProgressFunc func(percent float64, phase string)

// Service is the full set of backend operations the engine depends
// on. Each method is one suspension point; implementations must honor
// ctx cancellation and never block forever.
type Service interface {
	// CreateCampaign creates the durable campaign record. Called
	// exactly once per step-1 completion; no idempotency is assumed.
	CreateCampaign(ctx context.Context, data models.CampaignSetupData) (*models.Campaign, error)

	// RunAnalysis performs analyze-store-enhance as one logical
	// operation. The progress callback is optional.
	RunAnalysis(ctx context.Context, campaignID string, params models.AnalysisParams, progress ProgressFunc) (*models.AnalysisResult, error)

	// GetWorkflowState returns read-only hydration state for resume.
	GetWorkflowState(ctx context.Context, campaignID string) (*models.WorkflowStateView, error)

	// SaveProgress persists a recoverable snapshot. Best-effort:
	// failure never blocks the UI.
	SaveProgress(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error

	// SetWorkflowPreference records the user's workflow mode.
	SetWorkflowPreference(ctx context.Context, campaignID, mode string) error

	// GenerateContent produces one artifact. Repeatable for "generate
	// more variations".
	GenerateContent(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)

	// GetPlatformSpecs returns the image platform catalog. Read-only.
	GetPlatformSpecs(ctx context.Context) (map[string]models.PlatformSpec, error)

	// EstimateCost prices an image generation for the given platforms
	// and tier. Read-only, side-effect-free.
	EstimateCost(ctx context.Context, platforms []string, tier string) (float64, error)

	// GetCampaignIntelligence lists the campaign's analyzed sources.
	GetCampaignIntelligence(ctx context.Context, campaignID string) ([]models.IntelligenceSource, error)
}
