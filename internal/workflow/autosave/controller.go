// Package autosave persists progress snapshots on a fixed interval and
// on discrete events, with single-flight coalescing so concurrent
// triggers never produce concurrent writes.
package autosave

import (
	"context"
	"sync"
	"time"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
)

// TriggerPeriodic is the reason attached to interval ticks. Discrete
// events pass their own reason (step_change, source_added, manual).
const TriggerPeriodic = "periodic"

const saveTimeout = 10 * time.Second

// SnapshotFunc captures the current session state for persistence.
// Called once per save attempt, outside the controller's lock.
type SnapshotFunc func(trigger string) models.ProgressSnapshot

// Controller runs the auto-save loop for one session. Saves are
// best-effort: a failure is logged and never blocks navigation. While
// a save is in flight, further triggers mark the session dirty and
// exactly one follow-up save runs afterwards.
type Controller struct {
	backend    backend.Service
	logger     logger.Logger
	campaignID string
	snapshot   SnapshotFunc
	interval   time.Duration

	mu           sync.Mutex
	saving       bool
	dirty        bool
	dirtyTrigger string
	lastSavedAt  time.Time
	stopped      bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewController(svc backend.Service, log logger.Logger, campaignID string, interval time.Duration, snapshot SnapshotFunc) *Controller {
	return &Controller{
		backend:    svc,
		logger:     log,
		campaignID: campaignID,
		snapshot:   snapshot,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the interval ticker. Idempotent per controller; call
// once when the session activates.
func (c *Controller) Start() {
	c.wg.Add(1)
	go c.tickLoop()
}

func (c *Controller) tickLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Trigger(TriggerPeriodic)
		case <-c.stopCh:
			return
		}
	}
}

// Trigger requests a save for the given reason. If a save is already
// in flight the trigger is absorbed into a single follow-up save.
func (c *Controller) Trigger(reason string) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	if c.saving {
		c.dirty = true
		c.dirtyTrigger = reason
		c.mu.Unlock()
		metrics.SavesCoalesced.Inc()
		return
	}
	c.saving = true
	c.wg.Add(1)
	c.mu.Unlock()

	go c.saveLoop(reason)
}

// saveLoop runs one save, then exactly one more if triggers arrived
// while it was in flight, until the dirty flag stays clear.
func (c *Controller) saveLoop(reason string) {
	defer c.wg.Done()
	for {
		c.saveOnce(reason)

		c.mu.Lock()
		if !c.dirty {
			c.saving = false
			c.mu.Unlock()
			return
		}
		c.dirty = false
		reason = c.dirtyTrigger
		c.mu.Unlock()
	}
}

func (c *Controller) saveOnce(reason string) {
	snapshot := c.snapshot(reason)

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	err := c.backend.SaveProgress(ctx, c.campaignID, snapshot)
	if err != nil {
		metrics.SavesAttempted.WithLabelValues(reason, "failure").Inc()
		c.logger.WithError(err).Warn("auto-save failed", map[string]interface{}{
			"campaign_id": c.campaignID,
			"trigger":     reason,
		})
		return
	}

	metrics.SavesAttempted.WithLabelValues(reason, "success").Inc()
	c.mu.Lock()
	c.lastSavedAt = time.Now().UTC()
	c.mu.Unlock()
	c.logger.Debug("progress saved", map[string]interface{}{
		"campaign_id": c.campaignID,
		"trigger":     reason,
		"step":        snapshot.CurrentStep,
	})
}

// LastSavedAt returns the completion time of the most recent
// successful save, zero if none has succeeded yet.
func (c *Controller) LastSavedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSavedAt
}

// Stop halts the ticker, rejects further triggers, and waits out the
// in-flight save plus any coalesced follow-up.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stopCh)
	c.wg.Wait()
}
