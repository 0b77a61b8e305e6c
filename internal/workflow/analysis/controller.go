// Package analysis runs the analyze-store-enhance task for a campaign:
// one task at a time, bounded duration, progress snapshots, and a
// liveness token so results arriving after teardown are dropped.
package analysis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
)

// ErrAnalysisInFlight is returned by Start when a task is already
// running for the campaign. The running task is untouched.
var ErrAnalysisInFlight = stderrors.New("analysis already in flight")

// ErrRetryNotAllowed is returned by Retry outside the failed state.
var ErrRetryNotAllowed = stderrors.New("retry only allowed after a failed analysis")

// DefaultTimeout bounds a single analysis run.
const DefaultTimeout = 120 * time.Second

// CompletionFunc is invoked once per finished task, after the snapshot
// has been replaced. It is never invoked for a task whose liveness
// token was rotated before completion.
type CompletionFunc func(task models.AnalysisTask)

// Controller owns the analysis lifecycle for one campaign session.
type Controller struct {
	backend    backend.Service
	logger     logger.Logger
	timeout    time.Duration
	onComplete CompletionFunc

	mu         sync.Mutex
	token      uint64
	campaignID string
	params     models.AnalysisParams
	task       models.AnalysisTask
	cancel     context.CancelFunc
}

func NewController(svc backend.Service, log logger.Logger, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Controller{
		backend: svc,
		logger:  log,
		timeout: timeout,
		task:    models.AnalysisTask{Status: models.AnalysisIdle},
	}
}

// OnComplete registers the completion callback. Must be called before
// the first Start.
func (c *Controller) OnComplete(fn CompletionFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Start launches the analysis task in the background. A second Start
// while a task is running returns ErrAnalysisInFlight.
func (c *Controller) Start(ctx context.Context, campaignID string, params models.AnalysisParams) error {
	c.mu.Lock()
	if c.task.Status == models.AnalysisRunning {
		c.mu.Unlock()
		return ErrAnalysisInFlight
	}

	c.token++
	token := c.token
	c.campaignID = campaignID
	c.params = params
	c.task = models.AnalysisTask{
		Status:          models.AnalysisRunning,
		ProgressPercent: 0,
		PhaseLabel:      "Starting analysis",
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	c.cancel = cancel
	c.mu.Unlock()

	metrics.AnalysesStarted.Inc()
	c.logger.Info("analysis started", map[string]interface{}{
		"campaign_id":   campaignID,
		"salespage_url": params.SalespageURL,
		"auto_enhance":  params.AutoEnhance,
	})

	go c.run(runCtx, cancel, token, campaignID, params)
	return nil
}

// Retry replays the failed task with the original parameters. Only
// valid from the failed state.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.task.Status != models.AnalysisFailed {
		c.mu.Unlock()
		return ErrRetryNotAllowed
	}
	campaignID := c.campaignID
	params := c.params
	c.task = models.AnalysisTask{Status: models.AnalysisIdle}
	c.mu.Unlock()

	return c.Start(ctx, campaignID, params)
}

// Task returns the current snapshot.
func (c *Controller) Task() models.AnalysisTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

// Hydrate force-sets the snapshot from persisted backend state during
// session resume. Never called while a task is running.
func (c *Controller) Hydrate(task models.AnalysisTask, campaignID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.task.Status == models.AnalysisRunning {
		return
	}
	c.task = task
	c.campaignID = campaignID
}

// Teardown rotates the liveness token and cancels any running task.
// Results that arrive afterwards are discarded.
func (c *Controller) Teardown() {
	c.mu.Lock()
	c.token++
	cancel := c.cancel
	c.cancel = nil
	if c.task.Status == models.AnalysisRunning {
		c.task = models.AnalysisTask{Status: models.AnalysisIdle}
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, token uint64, campaignID string, params models.AnalysisParams) {
	defer cancel()
	started := time.Now()

	result, err := c.backend.RunAnalysis(ctx, campaignID, params, func(percent float64, phase string) {
		c.reportProgress(token, percent, phase)
	})

	elapsed := time.Since(started)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())

	if err != nil {
		c.finishFailed(ctx, token, campaignID, err, elapsed)
		return
	}
	c.finishSucceeded(token, campaignID, result, elapsed)
}

func (c *Controller) reportProgress(token uint64, percent float64, phase string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.token || c.task.Status != models.AnalysisRunning {
		return
	}
	// Progress never moves backwards, whatever the callback delivers.
	if percent < c.task.ProgressPercent {
		percent = c.task.ProgressPercent
	}
	c.task = models.AnalysisTask{
		Status:          models.AnalysisRunning,
		ProgressPercent: percent,
		PhaseLabel:      phase,
	}
}

func (c *Controller) finishSucceeded(token uint64, campaignID string, result *models.AnalysisResult, elapsed time.Duration) {
	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		c.logger.Debug("dropping stale analysis result", map[string]interface{}{"campaign_id": campaignID})
		return
	}
	task := models.AnalysisTask{
		Status:          models.AnalysisSucceeded,
		ProgressPercent: 100,
		PhaseLabel:      "Analysis complete",
		IntelligenceID:  result.IntelligenceID,
		ConfidenceScore: result.ConfidenceScore,
		Enhanced:        result.Enhanced,
	}
	c.task = task
	onComplete := c.onComplete
	c.mu.Unlock()

	metrics.AnalysesCompleted.WithLabelValues("succeeded").Inc()
	c.logger.Info("analysis succeeded", map[string]interface{}{
		"campaign_id":     campaignID,
		"intelligence_id": result.IntelligenceID,
		"confidence":      result.ConfidenceScore,
		"enhanced":        result.Enhanced,
		"duration":        elapsed.String(),
	})

	if onComplete != nil {
		onComplete(task)
	}
}

func (c *Controller) finishFailed(ctx context.Context, token uint64, campaignID string, cause error, elapsed time.Duration) {
	outcome := "failed"
	var failure error = cause
	if stderrors.Is(cause, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome = "timeout"
		failure = errors.NewTransportError("runAnalysis",
			fmt.Errorf("%s: analysis did not complete within %s", errors.ErrCodeAnalysisTimeout, c.timeout))
	}

	c.mu.Lock()
	if token != c.token {
		c.mu.Unlock()
		c.logger.Debug("dropping stale analysis failure", map[string]interface{}{"campaign_id": campaignID})
		return
	}
	task := c.task
	task.Status = models.AnalysisFailed
	task.PhaseLabel = "Analysis failed"
	task.Error = failure.Error()
	c.task = task
	onComplete := c.onComplete
	c.mu.Unlock()

	metrics.AnalysesCompleted.WithLabelValues(outcome).Inc()
	c.logger.WithError(failure).Error("analysis failed", map[string]interface{}{
		"campaign_id": campaignID,
		"outcome":     outcome,
		"duration":    elapsed.String(),
	})

	if onComplete != nil {
		onComplete(task)
	}
}
