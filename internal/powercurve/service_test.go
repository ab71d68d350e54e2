package powercurve_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
	"github.com/i474232898/turbine-power-curve/internal/store"
)

type call struct {
	turbineID int64
	r         powercurve.DateRange
}

// fakeSource records every request and answers through overridable funcs.
type fakeSource struct {
	mu           sync.Mutex
	catalogCalls int
	curveCalls   []call
	statsCalls   []call

	catalog func(ctx context.Context) ([]powercurve.TurbineSummary, error)
	curve   func(ctx context.Context, turbineID int64) ([]powercurve.RawCurvePoint, error)
	stats   func(ctx context.Context, turbineID int64) (powercurve.Statistics, error)
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		catalog: func(context.Context) ([]powercurve.TurbineSummary, error) {
			return []powercurve.TurbineSummary{
				{ID: 1, Name: "Turbine 1", ReadingCount: 52000},
				{ID: 2, Name: "Turbine 2", ReadingCount: 48000},
			}, nil
		},
		curve: func(_ context.Context, turbineID int64) ([]powercurve.RawCurvePoint, error) {
			return pointsFor(turbineID), nil
		},
		stats: func(_ context.Context, turbineID int64) (powercurve.Statistics, error) {
			count := turbineID * 1000
			return powercurve.Statistics{Count: &count}, nil
		},
	}
}

// pointsFor returns turbineID+1 points so responses are distinguishable.
func pointsFor(turbineID int64) []powercurve.RawCurvePoint {
	points := make([]powercurve.RawCurvePoint, 0, turbineID+1)
	for i := int64(0); i <= turbineID; i++ {
		points = append(points, powercurve.RawCurvePoint{
			WindSpeed:    float64(i) + 0.5,
			AveragePower: float64(turbineID*100 + i),
			ReadingCount: 95 + i*3,
		})
	}
	return points
}

func (f *fakeSource) FetchCatalog(ctx context.Context) ([]powercurve.TurbineSummary, error) {
	f.mu.Lock()
	f.catalogCalls++
	fn := f.catalog
	f.mu.Unlock()
	return fn(ctx)
}

func (f *fakeSource) FetchPowerCurve(ctx context.Context, turbineID int64, r powercurve.DateRange) ([]powercurve.RawCurvePoint, error) {
	f.mu.Lock()
	f.curveCalls = append(f.curveCalls, call{turbineID: turbineID, r: r})
	fn := f.curve
	f.mu.Unlock()
	return fn(ctx, turbineID)
}

func (f *fakeSource) FetchStatistics(ctx context.Context, turbineID int64, r powercurve.DateRange) (powercurve.Statistics, error) {
	f.mu.Lock()
	f.statsCalls = append(f.statsCalls, call{turbineID: turbineID, r: r})
	fn := f.stats
	f.mu.Unlock()
	return fn(ctx, turbineID)
}

func (f *fakeSource) counts() (catalog, curve, stats int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.catalogCalls, len(f.curveCalls), len(f.statsCalls)
}

func newController(src powercurve.Source, p powercurve.Params) *powercurve.Controller {
	return powercurve.NewController(src, store.NewMemoryStore(), powercurve.NewParameterStore(p), zerolog.Nop())
}

func TestControllerScenarioReady(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	v := ctrl.View()
	assert.Equal(t, powercurve.StatusReady, v.Status)
	assert.Len(t, v.Series, 2)
	assert.Empty(t, v.ErrorMessage)
	require.NotNil(t, v.Statistics)
	assert.Equal(t, int64(1000), *v.Statistics.Count)
	assert.Equal(t, uint64(1), v.Generation)

	catalog, curve, stats := src.counts()
	assert.Equal(t, 1, catalog)
	assert.Equal(t, 1, curve)
	assert.Equal(t, 1, stats)
	assert.Len(t, ctrl.Catalog(), 2)

	assert.Equal(t, "2016-01-01T00:00:00", src.curveCalls[0].r.StartTime())
	assert.Equal(t, "2016-03-31T23:59:59", src.curveCalls[0].r.EndTime())
}

func TestControllerScenarioOutsideDataWindow(t *testing.T) {
	src := newFakeSource()
	src.curve = func(context.Context, int64) ([]powercurve.RawCurvePoint, error) {
		return nil, &powercurve.FetchError{Kind: powercurve.KindNoData, StatusCode: 404, Err: errors.New("not found")}
	}
	src.stats = func(context.Context, int64) (powercurve.Statistics, error) {
		return powercurve.Statistics{}, &powercurve.FetchError{Kind: powercurve.KindNoData, StatusCode: 404, Err: errors.New("not found")}
	}

	ctrl := newController(src, powercurve.Params{
		TurbineID: 1,
		Range:     powercurve.DateRange{Start: powercurve.MustDate("2020-01-01"), End: powercurve.MustDate("2020-01-02")},
	})
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	v := ctrl.View()
	assert.Equal(t, powercurve.StatusError, v.Status)
	assert.Equal(t, "Dear user, the available data is from January 1, 2016, to March 31, 2016. Please select a date range within this period.", v.ErrorMessage)
	assert.Equal(t, powercurve.KindNoData, v.ErrorKind)
	assert.Empty(t, v.Series)
	assert.Nil(t, v.Statistics)
}

func TestControllerScenarioEmpty(t *testing.T) {
	src := newFakeSource()
	src.curve = func(context.Context, int64) ([]powercurve.RawCurvePoint, error) {
		return []powercurve.RawCurvePoint{}, nil
	}

	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	v := ctrl.View()
	assert.Equal(t, powercurve.StatusEmpty, v.Status)
	assert.Empty(t, v.Series)
	assert.Empty(t, v.ErrorMessage)
}

func TestControllerStatisticsFailureIsSilent(t *testing.T) {
	src := newFakeSource()
	src.stats = func(context.Context, int64) (powercurve.Statistics, error) {
		return powercurve.Statistics{}, errors.New("connection reset")
	}

	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	v := ctrl.View()
	assert.Equal(t, powercurve.StatusReady, v.Status)
	assert.Nil(t, v.Statistics)
	assert.Empty(t, v.ErrorMessage)
}

func TestControllerTurbineChangeDispatchesOnce(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	assert.True(t, ctrl.SetTurbine(2))
	ctrl.Wait()

	_, curve, stats := src.counts()
	require.Equal(t, 2, curve)
	require.Equal(t, 2, stats)

	for _, c := range []call{src.curveCalls[1], src.statsCalls[1]} {
		assert.Equal(t, int64(2), c.turbineID)
		assert.Equal(t, powercurve.DefaultStart, c.r.Start)
		assert.Equal(t, powercurve.DefaultEnd, c.r.End)
	}

	v := ctrl.View()
	assert.Equal(t, int64(2), v.SelectedTurbineID)
	assert.Len(t, v.Series, 3)
}

func TestControllerUnchangedSelectionDispatchesNothing(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	assert.False(t, ctrl.SetTurbine(1))
	dispatched, err := ctrl.SetRange(powercurve.DefaultStart, powercurve.DefaultEnd)
	require.NoError(t, err)
	assert.False(t, dispatched)
	ctrl.Wait()

	_, curve, stats := src.counts()
	assert.Equal(t, 1, curve)
	assert.Equal(t, 1, stats)
}

func TestControllerInvertedRangeDispatchesNothing(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()
	before := ctrl.View()

	dispatched, err := ctrl.SetEndDate(powercurve.MustDate("2015-06-01"))
	assert.ErrorIs(t, err, powercurve.ErrInvertedRange)
	assert.False(t, dispatched)
	ctrl.Wait()

	_, curve, _ := src.counts()
	assert.Equal(t, 1, curve)
	assert.Equal(t, before, ctrl.View())
}

func TestControllerIncompleteSelectionWaits(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.Params{TurbineID: 1, Range: powercurve.DateRange{Start: powercurve.DefaultStart}})
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	_, curve, stats := src.counts()
	assert.Zero(t, curve)
	assert.Zero(t, stats)
	assert.Equal(t, powercurve.StatusLoading, ctrl.View().Status)

	dispatched, err := ctrl.SetEndDate(powercurve.DefaultEnd)
	require.NoError(t, err)
	assert.True(t, dispatched)
	ctrl.Wait()

	assert.Equal(t, powercurve.StatusReady, ctrl.View().Status)
}

func TestControllerDiscardsStaleResponses(t *testing.T) {
	release := make(chan struct{})
	firstCtxErr := make(chan error, 1)

	src := newFakeSource()
	src.curve = func(ctx context.Context, turbineID int64) ([]powercurve.RawCurvePoint, error) {
		if turbineID == 1 {
			// The first request completes only after the second one.
			<-release
			firstCtxErr <- ctx.Err()
		}
		return pointsFor(turbineID), nil
	}
	src.stats = func(ctx context.Context, turbineID int64) (powercurve.Statistics, error) {
		if turbineID == 1 {
			<-release
		}
		count := turbineID * 1000
		return powercurve.Statistics{Count: &count}, nil
	}

	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	require.True(t, ctrl.SetTurbine(2))

	require.Eventually(t, func() bool {
		return ctrl.View().Status == powercurve.StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	ctrl.Wait()

	assert.ErrorIs(t, <-firstCtxErr, context.Canceled, "superseded fetch is cancelled")

	v := ctrl.View()
	assert.Equal(t, uint64(2), v.Generation)
	assert.Equal(t, int64(2), v.SelectedTurbineID)
	assert.Len(t, v.Series, 3, "turbine 2 series survives the late turbine 1 response")
	require.NotNil(t, v.Statistics)
	assert.Equal(t, int64(2000), *v.Statistics.Count)
}

func TestControllerCatalogFailureLeavesViewAlone(t *testing.T) {
	src := newFakeSource()
	src.catalog = func(context.Context) ([]powercurve.TurbineSummary, error) {
		return nil, errors.New("connection refused")
	}

	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	assert.Empty(t, ctrl.Catalog())
	assert.Equal(t, powercurve.StatusReady, ctrl.View().Status)
	assert.Empty(t, ctrl.View().ErrorMessage)

	turbines, err := ctrl.LoadCatalog(context.Background())
	assert.Error(t, err)
	assert.Empty(t, turbines)

	catalog, _, _ := src.counts()
	assert.Equal(t, 1, catalog, "catalog is loaded exactly once")
}

func TestControllerRefreshStartsNewGeneration(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	ctrl.Start(context.Background())
	ctrl.Wait()

	assert.True(t, ctrl.Refresh())
	ctrl.Wait()

	assert.Equal(t, uint64(2), ctrl.View().Generation)
	_, curve, stats := src.counts()
	assert.Equal(t, 2, curve)
	assert.Equal(t, 2, stats)
}

func TestControllerSubscribe(t *testing.T) {
	src := newFakeSource()
	ctrl := newController(src, powercurve.DefaultParams())
	defer ctrl.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	ctrl.Start(context.Background())
	ctrl.Wait()

	var last powercurve.ViewState
	require.Eventually(t, func() bool {
		select {
		case v := <-updates:
			last = v
		default:
		}
		return last.Status == powercurve.StatusReady && last.Statistics != nil
	}, 2*time.Second, 5*time.Millisecond)
}
