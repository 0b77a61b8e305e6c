// Package pricing keeps a cost estimate for pending image generation
// current as the platform selection changes. Lookups are keyed by the
// sorted platform list plus user tier, and a stale response never
// overwrites a newer one.
package pricing

import (
	"context"
	"sort"
	"sync"
	"time"

	"campaign-engine/internal/backend"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/models"
	"campaign-engine/internal/workflow/content"
)

const defaultCurrency = "USD"

// Estimator issues pricing lookups and applies them last-request-wins.
// Each Refresh gets a monotonically increasing sequence number; a
// result is applied only while its sequence is still the newest issued,
// so out-of-order responses are discarded rather than shown.
type Estimator struct {
	backend backend.Service
	logger  logger.Logger

	mu      sync.Mutex
	nextSeq uint64
	current *models.CostEstimate
}

func NewEstimator(svc backend.Service, log logger.Logger) *Estimator {
	return &Estimator{
		backend: svc,
		logger:  log,
	}
}

// Refresh recomputes the estimate for the given selection. It is a
// no-op unless the content type produces images and at least one
// platform is selected; in that case the previous estimate is cleared
// or replaced by the lookup's outcome.
func (e *Estimator) Refresh(ctx context.Context, contentType content.ContentType, platforms []string, tier string) error {
	if !contentType.IsImageType() || len(platforms) == 0 {
		e.Clear()
		return nil
	}

	sorted := make([]string, len(platforms))
	copy(sorted, platforms)
	sort.Strings(sorted)

	e.mu.Lock()
	e.nextSeq++
	seq := e.nextSeq
	e.mu.Unlock()

	amount, err := e.backend.EstimateCost(ctx, sorted, tier)
	if err != nil {
		e.logger.WithError(err).Warn("cost lookup failed", map[string]interface{}{
			"platforms": sorted,
			"tier":      tier,
		})
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.nextSeq {
		metrics.CostLookupsSuperseded.Inc()
		e.logger.Debug("discarding superseded cost lookup", map[string]interface{}{
			"seq":    seq,
			"latest": e.nextSeq,
		})
		return nil
	}
	e.current = &models.CostEstimate{
		Amount:    amount,
		Currency:  defaultCurrency,
		Platforms: sorted,
		Tier:      tier,
		FetchedAt: time.Now().UTC(),
	}
	return nil
}

// Current returns the latest applied estimate, or nil when no image
// selection is active.
func (e *Estimator) Current() *models.CostEstimate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	snapshot := *e.current
	snapshot.Platforms = append([]string(nil), e.current.Platforms...)
	return &snapshot
}

// Clear drops the current estimate without issuing a lookup.
func (e *Estimator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = nil
	e.nextSeq++
}
