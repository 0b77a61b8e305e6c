package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/backend/backendtest"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/models"
)

func snapshotAt(step int) SnapshotFunc {
	return func(trigger string) models.ProgressSnapshot {
		return models.ProgressSnapshot{
			CurrentStep: step,
			Trigger:     trigger,
			CapturedAt:  time.Now().UTC(),
		}
	}
}

func TestTrigger_SavesSnapshotWithReason(t *testing.T) {
	fake := backendtest.New()
	var mu sync.Mutex
	var saved []models.ProgressSnapshot
	done := make(chan struct{}, 1)
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		mu.Lock()
		saved = append(saved, snapshot)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", time.Hour, snapshotAt(2))
	defer c.Stop()

	c.Trigger("step_change")
	<-done

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, saved, 1)
	assert.Equal(t, 2, saved[0].CurrentStep)
	assert.Equal(t, "step_change", saved[0].Trigger)
}

func TestTrigger_SuccessUpdatesLastSavedAt(t *testing.T) {
	fake := backendtest.New()
	done := make(chan struct{}, 1)
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		done <- struct{}{}
		return nil
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", time.Hour, snapshotAt(1))
	defer c.Stop()

	require.True(t, c.LastSavedAt().IsZero())
	c.Trigger("manual")
	<-done

	assert.Eventually(t, func() bool { return !c.LastSavedAt().IsZero() },
		time.Second, 5*time.Millisecond)
}

func TestTrigger_FailureIsLoggedOnly(t *testing.T) {
	fake := backendtest.New()
	done := make(chan struct{}, 1)
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		done <- struct{}{}
		return errors.New("backend unavailable")
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", time.Hour, snapshotAt(1))
	c.Trigger("manual")
	<-done
	c.Stop()

	assert.True(t, c.LastSavedAt().IsZero())
}

func TestTrigger_CoalescesToExactlyOneFollowUp(t *testing.T) {
	fake := backendtest.New()
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		once.Do(func() {
			close(firstStarted)
			<-release
		})
		return nil
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", time.Hour, snapshotAt(2))

	c.Trigger("step_change")
	<-firstStarted

	// Many triggers land while the first save is in flight.
	for i := 0; i < 10; i++ {
		c.Trigger("source_added")
	}
	close(release)

	c.Stop() // waits out the save loop

	assert.Equal(t, 2, fake.Calls("SaveProgress"))
}

func TestTrigger_FollowUpUsesLatestReason(t *testing.T) {
	fake := backendtest.New()
	firstStarted := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var reasons []string
	var once sync.Once
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		mu.Lock()
		reasons = append(reasons, snapshot.Trigger)
		mu.Unlock()
		once.Do(func() {
			close(firstStarted)
			<-release
		})
		return nil
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", time.Hour, snapshotAt(2))

	c.Trigger("step_change")
	<-firstStarted
	c.Trigger("source_added")
	c.Trigger("manual")
	close(release)
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reasons, 2)
	assert.Equal(t, "step_change", reasons[0])
	assert.Equal(t, "manual", reasons[1])
}

func TestStart_PeriodicTicksSave(t *testing.T) {
	fake := backendtest.New()
	saves := make(chan string, 10)
	fake.SaveProgressFn = func(ctx context.Context, campaignID string, snapshot models.ProgressSnapshot) error {
		saves <- snapshot.Trigger
		return nil
	}

	c := NewController(fake, logger.NewTestLogger(t), "camp-1", 10*time.Millisecond, snapshotAt(3))
	c.Start()
	defer c.Stop()

	select {
	case trigger := <-saves:
		assert.Equal(t, TriggerPeriodic, trigger)
	case <-time.After(time.Second):
		t.Fatal("no periodic save fired")
	}
}

func TestStop_HaltsTickerAndRejectsTriggers(t *testing.T) {
	fake := backendtest.New()
	c := NewController(fake, logger.NewTestLogger(t), "camp-1", 10*time.Millisecond, snapshotAt(1))
	c.Start()
	c.Stop()

	before := fake.Calls("SaveProgress")
	c.Trigger("manual")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, fake.Calls("SaveProgress"))
}
