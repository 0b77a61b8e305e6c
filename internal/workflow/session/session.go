// Package session holds the live coordination object for one
// campaign's setup, analysis, and generation journey, plus the manager
// that owns every open session.
package session

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/config"
	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
	"campaign-engine/internal/workflow/analysis"
	"campaign-engine/internal/workflow/autosave"
	"campaign-engine/internal/workflow/content"
	"campaign-engine/internal/workflow/pricing"
	"campaign-engine/internal/workflow/steps"
)

// BatchItem is one requested artifact of a batch generation.
type BatchItem struct {
	ContentType string                 `json:"content_type"`
	Preferences map[string]interface{} `json:"preferences"`
}

// BatchOutcome reports one item's result from an all-settled batch.
type BatchOutcome struct {
	ContentType string                       `json:"content_type"`
	Item        *models.GeneratedContentItem `json:"item,omitempty"`
	Err         error                        `json:"-"`
}

// View is a read-only snapshot of the session for the API surface.
type View struct {
	SessionID         string                        `json:"session_id"`
	CampaignID        string                        `json:"campaign_id,omitempty"`
	CurrentStep       int                           `json:"current_step"`
	State             steps.State                   `json:"state"`
	Mode              steps.Mode                    `json:"mode"`
	Step1Locked       bool                          `json:"step1_locked"`
	SuggestedStep     int                           `json:"suggested_step"`
	Analysis          models.AnalysisTask           `json:"analysis"`
	IntelligenceID    string                        `json:"intelligence_id,omitempty"`
	Sources           []models.IntelligenceSource   `json:"sources,omitempty"`
	ContentItems      []models.GeneratedContentItem `json:"content_items"`
	SelectedPlatforms []string                      `json:"selected_platforms"`
	CostEstimate      *models.CostEstimate          `json:"cost_estimate,omitempty"`
	LastSavedAt       time.Time                     `json:"last_saved_at"`
}

// Session glues the step machine, analysis controller, estimator, and
// auto-save together for one campaign. All mutating operations
// serialize on the session lock; background completions re-enter
// through the same lock.
type Session struct {
	id      string
	backend backend.Service
	logger  logger.Logger
	cfg     config.SessionConfig

	analysis  *analysis.Controller
	estimator *pricing.Estimator

	mu           sync.Mutex
	machine      *steps.Machine
	setup        models.CampaignSetupData
	campaign     *models.Campaign
	autosave     *autosave.Controller
	selection    *content.PlatformSelection
	intelligence string
	sources      []models.IntelligenceSource
	items        []models.GeneratedContentItem
	userTier     string
	active       bool
	advanceTimer *time.Timer
}

func newSession(id string, svc backend.Service, log logger.Logger, cfg config.SessionConfig) *Session {
	s := &Session{
		id:        id,
		backend:   svc,
		logger:    log.WithFields(map[string]interface{}{"session_id": id}),
		cfg:       cfg,
		machine:   steps.NewMachine(cfg.GetQuickAdvanceDelay(), cfg.GetAutoAdvanceDelay()),
		analysis:  analysis.NewController(svc, log, cfg.GetAnalysisTimeout()),
		estimator: pricing.NewEstimator(svc, log),
		selection: content.NewPlatformSelection(),
		userTier:  "free",
		active:    true,
	}
	s.analysis.OnComplete(s.onAnalysisDone)
	return s
}

func (s *Session) ID() string { return s.id }

// SetUserTier records the pricing tier used for cost estimates.
func (s *Session) SetUserTier(tier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tier != "" {
		s.userTier = tier
	}
}

// CompleteStep1 validates the setup form, creates the durable campaign
// exactly once, locks step 1, advances to step 2, and kicks off the
// analysis and the auto-save loop.
func (s *Session) CompleteStep1(ctx context.Context, data models.CampaignSetupData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Step1Locked() {
		return errors.NewGuardViolation(steps.StepSetup, "campaign setup is locked")
	}
	if err := s.machine.ValidateSetup(data); err != nil {
		return err
	}

	campaign, err := s.backend.CreateCampaign(ctx, data)
	if err != nil {
		return err
	}

	s.setup = data
	s.campaign = campaign
	s.machine.Lock()
	s.logger.Info("campaign created, setup locked", map[string]interface{}{
		"campaign_id": campaign.ID,
		"title":       campaign.Title,
	})

	s.startAutoSaveLocked()

	s.machine.MarkAnalysisStarted()
	if err := s.analysis.Start(ctx, campaign.ID, models.AnalysisParams{
		SalespageURL: data.SalespageURL,
		ProductName:  data.ProductName,
		AutoEnhance:  true,
	}); err != nil {
		// Setup stays locked; the analysis can be retried from the UI.
		s.machine.MarkAnalysisFailed()
		s.logger.WithError(err).Error("analysis launch failed", map[string]interface{}{
			"campaign_id": campaign.ID,
		})
	}

	s.autosave.Trigger("step_change")
	return nil
}

// startAutoSaveLocked creates and starts the auto-save controller once
// a durable campaign exists. Caller holds the session lock.
func (s *Session) startAutoSaveLocked() {
	if s.autosave != nil {
		return
	}
	s.autosave = autosave.NewController(s.backend, s.logger, s.campaign.ID,
		s.cfg.GetAutoSaveInterval(), s.captureSnapshot)
	s.autosave.Start()
}

// captureSnapshot builds the persisted progress snapshot. Runs on the
// auto-save goroutine.
func (s *Session) captureSnapshot(trigger string) models.ProgressSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.analysis.Task()
	return models.ProgressSnapshot{
		CurrentStep: s.machine.CurrentStep(),
		Trigger:     trigger,
		SessionData: map[string]interface{}{
			"workflow_mode":   string(s.machine.Mode()),
			"step1_locked":    s.machine.Step1Locked(),
			"analysis_status": string(task.Status),
			"intelligence_id": s.intelligence,
			"content_items":   len(s.items),
		},
		CapturedAt: time.Now().UTC(),
	}
}

// onAnalysisDone is the analysis controller's completion callback.
func (s *Session) onAnalysisDone(task models.AnalysisTask) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	if task.Status == models.AnalysisFailed {
		s.machine.MarkAnalysisFailed()
		s.mu.Unlock()
		return
	}

	s.machine.MarkAnalysisSucceeded()
	s.intelligence = task.IntelligenceID
	s.scheduleAutoAdvanceLocked(steps.EventAnalysisCompleted)
	saver := s.autosave
	campaignID := s.campaign.ID
	s.mu.Unlock()

	if saver != nil {
		saver.Trigger("analysis_completed")
	}
	s.refreshSources(context.Background(), campaignID)
}

// scheduleAutoAdvanceLocked arms the session's advance timer when the
// machine decides the event warrants it. Caller holds the lock.
func (s *Session) scheduleAutoAdvanceLocked(event steps.Event) {
	target, delay, ok := s.machine.AutoAdvance(event)
	if !ok {
		return
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
	}
	s.advanceTimer = time.AfterFunc(delay, func() {
		if err := s.Advance(target); err != nil {
			s.logger.Debug("auto-advance skipped", map[string]interface{}{
				"target": target,
				"reason": err.Error(),
			})
		}
	})
}

// refreshSources re-reads the campaign's intelligence sources.
func (s *Session) refreshSources(ctx context.Context, campaignID string) {
	sources, err := s.backend.GetCampaignIntelligence(ctx, campaignID)
	if err != nil {
		s.logger.WithError(err).Warn("intelligence refresh failed", map[string]interface{}{
			"campaign_id": campaignID,
		})
		return
	}
	s.mu.Lock()
	s.sources = sources
	s.mu.Unlock()
}

// Advance navigates to the target step, persisting on success.
func (s *Session) Advance(target int) error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return errors.NewGuardViolation(target, "session torn down")
	}
	err := s.machine.Advance(target)
	saver := s.autosave
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if saver != nil {
		saver.Trigger("step_change")
	}
	return nil
}

// Save schedules an immediate snapshot persist at the user's request.
// It rides the auto-save controller so a manual save coalesces with
// in-flight saves like any other trigger.
func (s *Session) Save() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return errors.NewGuardViolation(steps.StepSetup, "session torn down")
	}
	saver := s.autosave
	s.mu.Unlock()

	if saver == nil {
		return errors.NewGuardViolation(steps.StepSetup, "nothing to save before campaign setup is completed")
	}
	saver.Trigger("manual")
	return nil
}

// RetryAnalysis replays a failed analysis with the original params.
func (s *Session) RetryAnalysis(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.analysis.Retry(ctx); err != nil {
		return err
	}
	s.machine.MarkAnalysisStarted()
	return nil
}

// AnalysisStatus returns the current analysis snapshot.
func (s *Session) AnalysisStatus() models.AnalysisTask {
	return s.analysis.Task()
}

// SetMode switches the workflow mode and records the preference
// remotely. The remote write is best-effort.
func (s *Session) SetMode(ctx context.Context, mode steps.Mode) error {
	s.mu.Lock()
	s.machine.SetMode(mode)
	campaignID := ""
	if s.campaign != nil {
		campaignID = s.campaign.ID
	}
	s.mu.Unlock()

	if campaignID == "" {
		return nil
	}
	if err := s.backend.SetWorkflowPreference(ctx, campaignID, string(mode)); err != nil {
		s.logger.WithError(err).Warn("workflow preference not persisted", map[string]interface{}{
			"campaign_id": campaignID,
			"mode":        string(mode),
		})
	}
	return nil
}

// SelectIntelligenceSource picks the source backing future requests.
// A successful selection counts as a sub-action: it can arm a quick
// auto-advance and schedules a snapshot save.
func (s *Session) SelectIntelligenceSource(id string) error {
	s.mu.Lock()
	found := false
	for _, src := range s.sources {
		if src.ID == id {
			s.intelligence = id
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return errors.NewValidationError("intelligence_id", "unknown intelligence source")
	}
	s.scheduleAutoAdvanceLocked(steps.EventSourceAdded)
	saver := s.autosave
	s.mu.Unlock()

	if saver != nil {
		saver.Trigger("source_added")
	}
	return nil
}

// TogglePlatform flips one image platform in the selection.
func (s *Session) TogglePlatform(platform string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Toggle(platform)
	return s.selection.Selected()
}

// ToggleCategory atomically selects or deselects a whole platform
// category.
func (s *Session) ToggleCategory(category string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.ToggleCategory(category)
	return s.selection.Selected()
}

// RefreshCostEstimate recomputes the pending image request's estimate
// from the current selection.
func (s *Session) RefreshCostEstimate(ctx context.Context, contentType string) error {
	ct, err := content.ParseContentType(contentType)
	if err != nil {
		return errors.NewValidationError("content_type", err.Error())
	}
	s.mu.Lock()
	platforms := s.selection.Selected()
	tier := s.userTier
	s.mu.Unlock()

	return s.estimator.Refresh(ctx, ct, platforms, tier)
}

// composerContext snapshots the values merged into every request.
func (s *Session) composerContext() (content.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.campaign == nil {
		return content.Context{}, errors.NewGuardViolation(steps.StepGeneration, "campaign setup must be completed first")
	}
	return content.Context{
		CampaignID:     s.campaign.ID,
		IntelligenceID: s.intelligence,
		TargetAudience: s.setup.TargetAudience,
	}, nil
}

// BuildRequest composes and validates a generation request without
// sending it.
func (s *Session) BuildRequest(contentType string, prefs map[string]interface{}) (*models.GenerationRequest, error) {
	reqCtx, err := s.composerContext()
	if err != nil {
		return nil, err
	}
	return content.BuildRequest(contentType, prefs, reqCtx)
}

// Generate composes, validates, and submits one generation request.
// The produced item is appended to the session; the intelligence list
// is refreshed afterwards.
func (s *Session) Generate(ctx context.Context, contentType string, prefs map[string]interface{}) (*models.GeneratedContentItem, error) {
	req, err := s.BuildRequest(contentType, prefs)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(contentType, "rejected").Inc()
		return nil, err
	}

	result, err := s.backend.GenerateContent(ctx, *req)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues(contentType, "failure").Inc()
		return nil, err
	}
	metrics.GenerationRequests.WithLabelValues(contentType, "success").Inc()

	item := models.GeneratedContentItem{
		ID:          result.ContentID,
		ContentType: req.ContentType,
		Title:       result.Title,
		Preview:     preview(result.Content),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.machine.MarkGenerating()
	s.scheduleAutoAdvanceLocked(steps.EventContentGenerated)
	saver := s.autosave
	campaignID := req.CampaignID
	s.mu.Unlock()

	if saver != nil {
		saver.Trigger("content_generated")
	}
	s.refreshSources(ctx, campaignID)
	return &item, nil
}

// GenerateBatch runs every item to completion independently. One
// item's failure never cancels or affects its siblings; the returned
// error is a PartialBatchFailure when some items failed.
func (s *Session) GenerateBatch(ctx context.Context, batch []BatchItem) ([]BatchOutcome, error) {
	outcomes := make([]BatchOutcome, len(batch))

	var wg sync.WaitGroup
	for i, item := range batch {
		wg.Add(1)
		go func(i int, item BatchItem) {
			defer wg.Done()
			generated, err := s.Generate(ctx, item.ContentType, item.Preferences)
			outcomes[i] = BatchOutcome{
				ContentType: item.ContentType,
				Item:        generated,
				Err:         err,
			}
		}(i, item)
	}
	wg.Wait()

	var failed []errors.BatchItemError
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, errors.BatchItemError{ContentType: o.ContentType, Err: o.Err})
		}
	}
	if len(failed) > 0 {
		return outcomes, &errors.PartialBatchFailure{Failed: failed, Total: len(batch)}
	}
	return outcomes, nil
}

// CostEstimate returns the latest applied estimate.
func (s *Session) CostEstimate() *models.CostEstimate {
	return s.estimator.Current()
}

// Snapshot returns a read-only view for the API surface.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		SessionID:         s.id,
		CurrentStep:       s.machine.CurrentStep(),
		State:             s.machine.State(),
		Mode:              s.machine.Mode(),
		Step1Locked:       s.machine.Step1Locked(),
		SuggestedStep:     s.machine.SuggestedStep(),
		Analysis:          s.analysis.Task(),
		IntelligenceID:    s.intelligence,
		Sources:           append([]models.IntelligenceSource(nil), s.sources...),
		ContentItems:      append([]models.GeneratedContentItem(nil), s.items...),
		SelectedPlatforms: s.selection.Selected(),
		CostEstimate:      s.estimator.Current(),
	}
	if s.campaign != nil {
		view.CampaignID = s.campaign.ID
	}
	if s.autosave != nil {
		view.LastSavedAt = s.autosave.LastSavedAt()
	}
	return view
}

// Teardown deactivates the session: the liveness token rotates so late
// analysis results die, timers stop, and the auto-save loop drains.
func (s *Session) Teardown() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	saver := s.autosave
	s.mu.Unlock()

	s.analysis.Teardown()
	s.estimator.Clear()
	if saver != nil {
		saver.Stop()
	}
	s.logger.Info("session torn down", nil)
}

// preview truncates generated content for the session view, backing
// off to a rune boundary so the cut never yields invalid UTF-8.
func preview(content string) string {
	const max = 200
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "…"
}
