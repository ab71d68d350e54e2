package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

// DefaultBaseURL is where the analytics API listens unless configured otherwise.
const DefaultBaseURL = "http://localhost:8000"

var errMissingCurvePoints = errors.New("response has no curve_points")

// Client implements powercurve.Source against the turbine analytics API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger

	catalogCircuit    *gobreaker.CircuitBreaker
	powerCurveCircuit *gobreaker.CircuitBreaker
	statsCircuit      *gobreaker.CircuitBreaker
}

var _ powercurve.Source = (*Client)(nil)

type breakerSettings struct {
	maxRequests uint32
	timeout     time.Duration
}

// Option configures a Client.
type Option func(*breakerSettings)

// WithBreaker sets how many requests a half-open breaker admits and how long
// an open breaker rejects calls before probing again. Zero values keep the defaults.
func WithBreaker(maxRequests uint32, timeout time.Duration) Option {
	return func(s *breakerSettings) {
		if maxRequests > 0 {
			s.maxRequests = maxRequests
		}
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewClient creates a client for the API at baseURL. An empty baseURL selects DefaultBaseURL.
func NewClient(client *http.Client, baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	bs := breakerSettings{maxRequests: DefaultBreakerMaxRequests, timeout: DefaultBreakerTimeout}
	for _, opt := range opts {
		opt(&bs)
	}

	return &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		client:            client,
		logger:            logger,
		catalogCircuit:    newBreaker("analytics-catalog", bs.maxRequests, bs.timeout, logger),
		powerCurveCircuit: newBreaker("analytics-power-curve", bs.maxRequests, bs.timeout, logger),
		statsCircuit:      newBreaker("analytics-statistics", bs.maxRequests, bs.timeout, logger),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchCatalog lists the turbines known to the API, in server order.
func (c *Client) FetchCatalog(ctx context.Context) ([]powercurve.TurbineSummary, error) {
	u := c.baseURL + "/turbines/"
	c.logger.Debug().Str("url", u).Msg("fetching turbine catalog")

	resp, err := doRequest(ctx, c.client, c.catalogCircuit, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Turbines []struct {
			ID           int64  `json:"id"`
			Name         string `json:"name"`
			ReadingCount int64  `json:"reading_count"`
		} `json:"turbines"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, decodeError(err)
	}

	turbines := make([]powercurve.TurbineSummary, 0, len(payload.Turbines))
	for _, t := range payload.Turbines {
		turbines = append(turbines, powercurve.TurbineSummary{
			ID:           t.ID,
			Name:         t.Name,
			ReadingCount: t.ReadingCount,
		})
	}
	return turbines, nil
}

// FetchPowerCurve returns the aggregated power curve records for a turbine.
func (c *Client) FetchPowerCurve(ctx context.Context, turbineID int64, r powercurve.DateRange) ([]powercurve.RawCurvePoint, error) {
	u := c.rangeURL(turbineID, "power-curve", r)
	c.logger.Debug().Str("url", u).Msg("fetching power curve")

	resp, err := doRequest(ctx, c.client, c.powerCurveCircuit, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		TurbineID   int64  `json:"turbine_id"`
		StartTime   string `json:"start_time"`
		EndTime     string `json:"end_time"`
		CurvePoints *[]struct {
			WindSpeed    float64 `json:"wind_speed"`
			AveragePower float64 `json:"average_power"`
			ReadingCount int64   `json:"reading_count"`
		} `json:"curve_points"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, decodeError(err)
	}
	if payload.CurvePoints == nil {
		return nil, decodeError(errMissingCurvePoints)
	}
	c.logger.Debug().
		Int64("turbine_id", payload.TurbineID).
		Str("covered_from", payload.StartTime).
		Str("covered_to", payload.EndTime).
		Int("points", len(*payload.CurvePoints)).
		Msg("power curve received")

	points := make([]powercurve.RawCurvePoint, 0, len(*payload.CurvePoints))
	for _, p := range *payload.CurvePoints {
		points = append(points, powercurve.RawCurvePoint{
			WindSpeed:    p.WindSpeed,
			AveragePower: p.AveragePower,
			ReadingCount: p.ReadingCount,
		})
	}
	return points, nil
}

// FetchStatistics returns the summary statistics for a turbine.
func (c *Client) FetchStatistics(ctx context.Context, turbineID int64, r powercurve.DateRange) (powercurve.Statistics, error) {
	u := c.rangeURL(turbineID, "statistics", r)
	c.logger.Debug().Str("url", u).Msg("fetching statistics")

	resp, err := doRequest(ctx, c.client, c.statsCircuit, u)
	if err != nil {
		return powercurve.Statistics{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		TurbineID    *int64   `json:"turbine_id"`
		Count        *int64   `json:"count"`
		AvgWindSpeed *float64 `json:"avg_wind_speed"`
		MinWindSpeed *float64 `json:"min_wind_speed"`
		MaxWindSpeed *float64 `json:"max_wind_speed"`
		AvgPower     *float64 `json:"avg_power"`
		MinPower     *float64 `json:"min_power"`
		MaxPower     *float64 `json:"max_power"`
		TotalEnergy  *float64 `json:"total_energy"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return powercurve.Statistics{}, decodeError(err)
	}

	return powercurve.Statistics{
		TurbineID:    payload.TurbineID,
		AvgWindSpeed: payload.AvgWindSpeed,
		MinWindSpeed: payload.MinWindSpeed,
		MaxWindSpeed: payload.MaxWindSpeed,
		AvgPower:     payload.AvgPower,
		MinPower:     payload.MinPower,
		MaxPower:     payload.MaxPower,
		TotalEnergy:  payload.TotalEnergy,
		Count:        payload.Count,
	}, nil
}

// rangeURL builds /turbines/{id}/{resource}?start_time=..&end_time=..
func (c *Client) rangeURL(turbineID int64, resource string, r powercurve.DateRange) string {
	values := url.Values{}
	values.Set("start_time", r.StartTime())
	values.Set("end_time", r.EndTime())

	return fmt.Sprintf("%s/turbines/%d/%s?%s", c.baseURL, turbineID, resource, values.Encode())
}
