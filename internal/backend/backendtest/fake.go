// Package backendtest provides a configurable in-memory Service fake
// for package tests.
package backendtest

import (
	"context"
	"sync"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/models"
)

// Fake implements backend.Service with per-method hooks. Unset hooks
// return zero values so tests only wire what they exercise. Calls are
// counted under a lock for concurrent assertions.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int

	CreateCampaignFn          func(ctx context.Context, data models.CampaignSetupData) (*models.Campaign, error)
	RunAnalysisFn             func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error)
	GetWorkflowStateFn        func(ctx context.Context, campaignID string) (*models.WorkflowStateView, error)
	SaveProgressFn            func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error
	SetWorkflowPreferenceFn   func(ctx context.Context, campaignID, mode string) error
	GenerateContentFn         func(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error)
	GetPlatformSpecsFn        func(ctx context.Context) (map[string]models.PlatformSpec, error)
	EstimateCostFn            func(ctx context.Context, platforms []string, tier string) (float64, error)
	GetCampaignIntelligenceFn func(ctx context.Context, campaignID string) ([]models.IntelligenceSource, error)
}

func New() *Fake {
	return &Fake{calls: make(map[string]int)}
}

// Calls returns how many times the named method ran.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	f.calls[method]++
	f.mu.Unlock()
}

func (f *Fake) CreateCampaign(ctx context.Context, data models.CampaignSetupData) (*models.Campaign, error) {
	f.record("CreateCampaign")
	if f.CreateCampaignFn != nil {
		return f.CreateCampaignFn(ctx, data)
	}
	return &models.Campaign{ID: "campaign-fake", Title: data.Title}, nil
}

func (f *Fake) RunAnalysis(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
	f.record("RunAnalysis")
	if f.RunAnalysisFn != nil {
		return f.RunAnalysisFn(ctx, campaignID, params, progress)
	}
	return &models.AnalysisResult{IntelligenceID: "intel-fake", ConfidenceScore: 0.9}, nil
}

func (f *Fake) GetWorkflowState(ctx context.Context, campaignID string) (*models.WorkflowStateView, error) {
	f.record("GetWorkflowState")
	if f.GetWorkflowStateFn != nil {
		return f.GetWorkflowStateFn(ctx, campaignID)
	}
	return &models.WorkflowStateView{}, nil
}

func (f *Fake) SaveProgress(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
	f.record("SaveProgress")
	if f.SaveProgressFn != nil {
		return f.SaveProgressFn(ctx, campaignID, snapshot)
	}
	return nil
}

func (f *Fake) SetWorkflowPreference(ctx context.Context, campaignID, mode string) error {
	f.record("SetWorkflowPreference")
	if f.SetWorkflowPreferenceFn != nil {
		return f.SetWorkflowPreferenceFn(ctx, campaignID, mode)
	}
	return nil
}

func (f *Fake) GenerateContent(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	f.record("GenerateContent")
	if f.GenerateContentFn != nil {
		return f.GenerateContentFn(ctx, req)
	}
	return &models.GenerationResult{ContentID: "content-fake"}, nil
}

func (f *Fake) GetPlatformSpecs(ctx context.Context) (map[string]models.PlatformSpec, error) {
	f.record("GetPlatformSpecs")
	if f.GetPlatformSpecsFn != nil {
		return f.GetPlatformSpecsFn(ctx)
	}
	return map[string]models.PlatformSpec{}, nil
}

func (f *Fake) EstimateCost(ctx context.Context, platforms []string, tier string) (float64, error) {
	f.record("EstimateCost")
	if f.EstimateCostFn != nil {
		return f.EstimateCostFn(ctx, platforms, tier)
	}
	return 0, nil
}

func (f *Fake) GetCampaignIntelligence(ctx context.Context, campaignID string) ([]models.IntelligenceSource, error) {
	f.record("GetCampaignIntelligence")
	if f.GetCampaignIntelligenceFn != nil {
		return f.GetCampaignIntelligenceFn(ctx, campaignID)
	}
	return nil, nil
}

var _ backend.Service = (*Fake)(nil)
