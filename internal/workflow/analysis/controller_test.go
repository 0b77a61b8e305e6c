package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/backend/backendtest"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/models"
)

func testParams() models.AnalysisParams {
	return models.AnalysisParams{
		SalespageURL: "https://example.com/offer",
		ProductName:  "Example Offer",
		AutoEnhance:  true,
	}
}

// waitForCompletion wires OnComplete to a channel and returns it.
func waitForCompletion(c *Controller) <-chan models.AnalysisTask {
	done := make(chan models.AnalysisTask, 1)
	c.OnComplete(func(task models.AnalysisTask) {
		done <- task
	})
	return done
}

func receiveTask(t *testing.T, ch <-chan models.AnalysisTask) models.AnalysisTask {
	t.Helper()
	select {
	case task := <-ch:
		return task
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for analysis completion")
		return models.AnalysisTask{}
	}
}

func TestStart_SuccessFillsSnapshot(t *testing.T) {
	fake := backendtest.New()
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		progress(10, "Analyzing salespage")
		progress(75, "Storing intelligence")
		return &models.AnalysisResult{IntelligenceID: "intel-77", ConfidenceScore: 0.82, Enhanced: true}, nil
	}

	c := NewController(fake, logger.NewTestLogger(t), 0)
	done := waitForCompletion(c)

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	task := receiveTask(t, done)

	assert.Equal(t, models.AnalysisSucceeded, task.Status)
	assert.Equal(t, float64(100), task.ProgressPercent)
	assert.Equal(t, "intel-77", task.IntelligenceID)
	assert.Equal(t, 0.82, task.ConfidenceScore)
	assert.True(t, task.Enhanced)
	assert.Equal(t, task, c.Task())
}

func TestStart_SecondStartWhileRunningRejected(t *testing.T) {
	fake := backendtest.New()
	release := make(chan struct{})
	running := make(chan struct{})
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		close(running)
		<-release
		return &models.AnalysisResult{IntelligenceID: "intel-1"}, nil
	}

	c := NewController(fake, logger.NewTestLogger(t), 0)
	done := waitForCompletion(c)

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	<-running

	err := c.Start(context.Background(), "camp-1", testParams())
	assert.ErrorIs(t, err, ErrAnalysisInFlight)
	assert.Equal(t, 1, fake.Calls("RunAnalysis"))

	close(release)
	task := receiveTask(t, done)
	assert.Equal(t, models.AnalysisSucceeded, task.Status)
}

func TestProgress_NeverMovesBackwards(t *testing.T) {
	fake := backendtest.New()
	c := NewController(fake, logger.NewTestLogger(t), 0)
	done := waitForCompletion(c)

	var mu sync.Mutex
	var percents []float64
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		progress(40, "Analyzing salespage")
		mu.Lock()
		percents = append(percents, c.Task().ProgressPercent)
		mu.Unlock()
		progress(20, "Analyzing salespage")
		mu.Lock()
		percents = append(percents, c.Task().ProgressPercent)
		mu.Unlock()
		return &models.AnalysisResult{IntelligenceID: "intel-1"}, nil
	}

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	receiveTask(t, done)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []float64{40, 40}, percents)
}

func TestStart_FailureRecordsError(t *testing.T) {
	fake := backendtest.New()
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		return nil, errors.New("salespage unreachable")
	}

	c := NewController(fake, logger.NewTestLogger(t), 0)
	done := waitForCompletion(c)

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	task := receiveTask(t, done)

	assert.Equal(t, models.AnalysisFailed, task.Status)
	assert.Contains(t, task.Error, "salespage unreachable")
}

func TestStart_TimeoutForcesRetryableFailure(t *testing.T) {
	fake := backendtest.New()
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	c := NewController(fake, logger.NewTestLogger(t), 50*time.Millisecond)
	done := waitForCompletion(c)

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	task := receiveTask(t, done)

	assert.Equal(t, models.AnalysisFailed, task.Status)
	assert.True(t, strings.Contains(task.Error, "ANALYSIS_TIMEOUT"), "error should carry the timeout code: %s", task.Error)
}

func TestRetry_OnlyFromFailed(t *testing.T) {
	fake := backendtest.New()
	c := NewController(fake, logger.NewTestLogger(t), 0)

	// Idle: nothing to retry.
	assert.ErrorIs(t, c.Retry(context.Background()), ErrRetryNotAllowed)
}

func TestRetry_ReplaysOriginalParams(t *testing.T) {
	fake := backendtest.New()
	var mu sync.Mutex
	var seen []models.AnalysisParams
	attempt := 0
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		mu.Lock()
		seen = append(seen, params)
		attempt++
		n := attempt
		mu.Unlock()
		if n == 1 {
			return nil, errors.New("transient failure")
		}
		return &models.AnalysisResult{IntelligenceID: "intel-2"}, nil
	}

	c := NewController(fake, logger.NewTestLogger(t), 0)
	done := waitForCompletion(c)

	params := testParams()
	require.NoError(t, c.Start(context.Background(), "camp-1", params))
	task := receiveTask(t, done)
	require.Equal(t, models.AnalysisFailed, task.Status)

	require.NoError(t, c.Retry(context.Background()))
	task = receiveTask(t, done)
	require.Equal(t, models.AnalysisSucceeded, task.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
	assert.Equal(t, params, seen[1])
}

func TestTeardown_DropsLateResult(t *testing.T) {
	fake := backendtest.New()
	release := make(chan struct{})
	running := make(chan struct{})
	fake.RunAnalysisFn = func(ctx context.Context, campaignID string, params models.AnalysisParams, progress backend.ProgressFunc) (*models.AnalysisResult, error) {
		close(running)
		<-release
		return &models.AnalysisResult{IntelligenceID: "intel-late"}, nil
	}

	c := NewController(fake, logger.NewTestLogger(t), 0)
	completions := make(chan models.AnalysisTask, 1)
	c.OnComplete(func(task models.AnalysisTask) { completions <- task })

	require.NoError(t, c.Start(context.Background(), "camp-1", testParams()))
	<-running

	c.Teardown()
	close(release)

	select {
	case task := <-completions:
		t.Fatalf("completion delivered after teardown: %+v", task)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, models.AnalysisIdle, c.Task().Status)
	assert.Empty(t, c.Task().IntelligenceID)
}

func TestHydrate_RestoresPersistedState(t *testing.T) {
	fake := backendtest.New()
	c := NewController(fake, logger.NewTestLogger(t), 0)

	c.Hydrate(models.AnalysisTask{
		Status:          models.AnalysisSucceeded,
		ProgressPercent: 100,
		IntelligenceID:  "intel-resumed",
		ConfidenceScore: 0.71,
	}, "camp-9")

	task := c.Task()
	assert.Equal(t, models.AnalysisSucceeded, task.Status)
	assert.Equal(t, "intel-resumed", task.IntelligenceID)
}
