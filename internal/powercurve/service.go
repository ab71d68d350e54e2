package powercurve

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Controller orchestrates the catalog load, the parameter triple and the two
// concurrent fetches that feed the view.
//
// Every dispatch gets a new generation. Outcomes from an older generation are
// discarded by the Store, so the view reflects the last dispatched parameters
// no matter in which order responses arrive.
type Controller struct {
	source Source
	store  Store
	params *ParameterStore
	logger zerolog.Logger

	catalogOnce sync.Once
	catalogMu   sync.RWMutex
	catalog     []TurbineSummary
	catalogErr  error

	mu         sync.Mutex
	baseCtx    context.Context
	generation uint64
	cancel     context.CancelFunc

	inflight sync.WaitGroup
}

// NewController creates a new Controller.
func NewController(source Source, store Store, params *ParameterStore, logger zerolog.Logger) *Controller {
	return &Controller{
		source:  source,
		store:   store,
		params:  params,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Start loads the catalog in the background and dispatches the initial
// parameters. Fetches are bound to ctx.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		_, _ = c.LoadCatalog(ctx)
	}()

	c.trigger("start")
}

// LoadCatalog fetches the turbine catalog. Only the first call reaches the
// API; later calls return the same outcome. A failure is logged and leaves
// the catalog empty; it never affects the view.
func (c *Controller) LoadCatalog(ctx context.Context) ([]TurbineSummary, error) {
	c.catalogOnce.Do(func() {
		turbines, err := c.source.FetchCatalog(ctx)

		c.catalogMu.Lock()
		defer c.catalogMu.Unlock()

		if err != nil {
			c.logger.Error().Err(err).Msg("failed to load turbine catalog")
			c.catalogErr = err
			return
		}
		c.catalog = turbines
		c.logger.Info().Int("turbines", len(turbines)).Msg("turbine catalog loaded")
	})

	return c.Catalog(), c.catalogError()
}

// Catalog returns the loaded turbines, or an empty slice if none were loaded.
func (c *Controller) Catalog() []TurbineSummary {
	c.catalogMu.RLock()
	defer c.catalogMu.RUnlock()

	out := make([]TurbineSummary, len(c.catalog))
	copy(out, c.catalog)
	return out
}

func (c *Controller) catalogError() error {
	c.catalogMu.RLock()
	defer c.catalogMu.RUnlock()
	return c.catalogErr
}

// Params returns the current selection.
func (c *Controller) Params() Params {
	return c.params.Params()
}

// View returns the current view state.
func (c *Controller) View() ViewState {
	return c.store.Current()
}

// Subscribe returns a channel that always holds the newest view state.
func (c *Controller) Subscribe() (<-chan ViewState, func()) {
	return c.store.Subscribe()
}

// SetTurbine selects a turbine and reports whether fetches were dispatched.
func (c *Controller) SetTurbine(id int64) bool {
	if !c.params.SetTurbine(id) {
		return false
	}
	return c.trigger("turbine")
}

// SetStartDate selects the first day and reports whether fetches were dispatched.
func (c *Controller) SetStartDate(d time.Time) (bool, error) {
	changed, err := c.params.SetStartDate(d)
	return c.afterChange("start_date", changed, err)
}

// SetEndDate selects the last day and reports whether fetches were dispatched.
func (c *Controller) SetEndDate(d time.Time) (bool, error) {
	changed, err := c.params.SetEndDate(d)
	return c.afterChange("end_date", changed, err)
}

// SetRange selects both days at once and reports whether fetches were dispatched.
func (c *Controller) SetRange(start, end time.Time) (bool, error) {
	changed, err := c.params.SetRange(start, end)
	return c.afterChange("date_range", changed, err)
}

// SetParams replaces the whole selection and reports whether fetches were dispatched.
func (c *Controller) SetParams(p Params) (bool, error) {
	changed, err := c.params.SetParams(p)
	return c.afterChange("params", changed, err)
}

// UpdateParams edits the selection atomically through fn and reports
// whether fetches were dispatched.
func (c *Controller) UpdateParams(fn func(p *Params) error) (bool, error) {
	changed, err := c.params.Update(fn)
	return c.afterChange("params", changed, err)
}

func (c *Controller) afterChange(reason string, changed bool, err error) (bool, error) {
	if err != nil {
		c.logger.Debug().Err(err).Str("reason", reason).Msg("selection rejected")
		return false, err
	}
	if !changed {
		return false, nil
	}
	return c.trigger(reason), nil
}

// Refresh re-dispatches the current selection under a new generation.
func (c *Controller) Refresh() bool {
	return c.trigger("refresh")
}

// Wait blocks until every fetch dispatched so far has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close cancels in-flight fetches and waits for them to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()

	c.inflight.Wait()
}

// trigger dispatches both fetches if the selection is complete.
func (c *Controller) trigger(reason string) bool {
	c.mu.Lock()

	// Read the selection under the dispatch lock so generations and
	// parameters advance together.
	p := c.params.Params()
	if !p.Complete() {
		c.mu.Unlock()
		c.logger.Debug().Str("reason", reason).Msg("selection incomplete; nothing dispatched")
		return false
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel
	c.store.Reset(gen, p)

	c.inflight.Add(2)
	c.mu.Unlock()

	log := c.logger.With().
		Uint64("generation", gen).
		Int64("turbine_id", p.TurbineID).
		Str("start_time", p.Range.StartTime()).
		Str("end_time", p.Range.EndTime()).
		Logger()
	log.Debug().Str("reason", reason).Msg("dispatching power curve and statistics fetches")

	go c.fetchPowerCurve(ctx, gen, p, log)
	go c.fetchStatistics(ctx, gen, p, log)

	return true
}

func (c *Controller) fetchPowerCurve(ctx context.Context, gen uint64, p Params, log zerolog.Logger) {
	defer c.inflight.Done()

	var series Series
	raw, err := c.source.FetchPowerCurve(ctx, p.TurbineID, p.Range)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(KindOf(err))).Msg("power curve fetch failed")
	} else {
		series = MapSeries(raw)
	}

	if !c.store.ApplyPowerCurve(gen, series, err) {
		log.Debug().Msg("discarding stale power curve response")
		return
	}
	log.Debug().Int("points", len(series)).Msg("power curve applied")
}

func (c *Controller) fetchStatistics(ctx context.Context, gen uint64, p Params, log zerolog.Logger) {
	defer c.inflight.Done()

	var stats *Statistics
	s, err := c.source.FetchStatistics(ctx, p.TurbineID, p.Range)
	if err != nil {
		log.Debug().Err(err).Msg("statistics fetch failed; omitting statistics")
	} else {
		stats = &s
	}

	if !c.store.ApplyStatistics(gen, stats, err) {
		log.Debug().Msg("discarding stale statistics response")
	}
}
