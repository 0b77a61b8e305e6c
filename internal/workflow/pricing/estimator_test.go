package pricing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-engine/internal/backend/backendtest"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/workflow/content"
)

func TestRefresh_NoOpForNonImageTypes(t *testing.T) {
	fake := backendtest.New()
	e := NewEstimator(fake, logger.NewNoOpLogger())

	err := e.Refresh(context.Background(), content.TypeBlogArticle, []string{"instagram_feed"}, "pro")
	require.NoError(t, err)
	assert.Nil(t, e.Current())
	assert.Zero(t, fake.Calls("EstimateCost"))
}

func TestRefresh_NoOpForEmptySelection(t *testing.T) {
	fake := backendtest.New()
	e := NewEstimator(fake, logger.NewNoOpLogger())

	err := e.Refresh(context.Background(), content.TypePlatformImage, nil, "pro")
	require.NoError(t, err)
	assert.Nil(t, e.Current())
	assert.Zero(t, fake.Calls("EstimateCost"))
}

func TestRefresh_EmptySelectionClearsPreviousEstimate(t *testing.T) {
	fake := backendtest.New()
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		return 4.50, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())

	require.NoError(t, e.Refresh(context.Background(), content.TypePlatformImage, []string{"instagram_feed"}, "pro"))
	require.NotNil(t, e.Current())

	require.NoError(t, e.Refresh(context.Background(), content.TypePlatformImage, nil, "pro"))
	assert.Nil(t, e.Current())
}

func TestRefresh_SortsPlatformsForLookupKey(t *testing.T) {
	fake := backendtest.New()
	var got []string
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		got = platforms
		return 9.99, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())

	input := []string{"youtube_thumbnail", "facebook_post", "instagram_feed"}
	require.NoError(t, e.Refresh(context.Background(), content.TypeMultiPlatformImage, input, "free"))

	assert.Equal(t, []string{"facebook_post", "instagram_feed", "youtube_thumbnail"}, got)
	// Caller's slice is untouched.
	assert.Equal(t, []string{"youtube_thumbnail", "facebook_post", "instagram_feed"}, input)

	est := e.Current()
	require.NotNil(t, est)
	assert.Equal(t, 9.99, est.Amount)
	assert.Equal(t, "USD", est.Currency)
	assert.Equal(t, "free", est.Tier)
	assert.Equal(t, []string{"facebook_post", "instagram_feed", "youtube_thumbnail"}, est.Platforms)
	assert.False(t, est.FetchedAt.IsZero())
}

func TestRefresh_LastRequestWins(t *testing.T) {
	fake := backendtest.New()

	firstStarted := make(chan struct{})
	release := make(chan struct{})
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		if len(platforms) == 1 && platforms[0] == "facebook_post" {
			close(firstStarted)
			<-release // hold the stale lookup until the newer one lands
			return 1.00, nil
		}
		return 2.00, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.Refresh(context.Background(), content.TypePlatformImage, []string{"facebook_post"}, "pro")
	}()

	<-firstStarted
	require.NoError(t, e.Refresh(context.Background(), content.TypePlatformImage, []string{"instagram_feed"}, "pro"))

	close(release)
	wg.Wait()

	est := e.Current()
	require.NotNil(t, est)
	assert.Equal(t, 2.00, est.Amount)
	assert.Equal(t, []string{"instagram_feed"}, est.Platforms)
}

func TestRefresh_LookupErrorKeepsPreviousEstimate(t *testing.T) {
	fake := backendtest.New()
	var fail bool
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		if fail {
			return 0, context.DeadlineExceeded
		}
		return 3.25, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())

	require.NoError(t, e.Refresh(context.Background(), content.TypePlatformImage, []string{"pinterest_pin"}, "pro"))

	fail = true
	err := e.Refresh(context.Background(), content.TypePlatformImage, []string{"pinterest_pin"}, "pro")
	require.Error(t, err)

	est := e.Current()
	require.NotNil(t, est)
	assert.Equal(t, 3.25, est.Amount)
}

func TestClear_DropsEstimateAndInvalidatesInFlight(t *testing.T) {
	fake := backendtest.New()

	started := make(chan struct{})
	release := make(chan struct{})
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		close(started)
		<-release
		return 7.00, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = e.Refresh(context.Background(), content.TypePlatformImage, []string{"facebook_post"}, "pro")
	}()

	<-started
	e.Clear()
	close(release)
	wg.Wait()

	assert.Nil(t, e.Current())
}

func TestCurrent_ReturnsDefensiveCopy(t *testing.T) {
	fake := backendtest.New()
	fake.EstimateCostFn = func(ctx context.Context, platforms []string, tier string) (float64, error) {
		return 5.00, nil
	}
	e := NewEstimator(fake, logger.NewNoOpLogger())
	require.NoError(t, e.Refresh(context.Background(), content.TypePlatformImage, []string{"facebook_post"}, "pro"))

	first := e.Current()
	first.Platforms[0] = "mutated"
	second := e.Current()
	assert.Equal(t, []string{"facebook_post"}, second.Platforms)
}
