package analytics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

var (
	errNoHTTPClient = errors.New("http client not configured")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoData       = errors.New("no data for requested range")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
)

// requestIDHeader carries a per-request id for correlation with server logs.
const requestIDHeader = "X-Request-ID"

// Breaker defaults. MaxRequests applies while half-open.
const (
	DefaultBreakerMaxRequests uint32 = 3
	DefaultBreakerTimeout            = 10 * time.Second
)

func newBreaker(name string, maxRequests uint32, timeout time.Duration, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:         name,
		MaxRequests:  maxRequests,
		Interval:     1 * time.Minute,
		Timeout:      timeout,
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// breakerSuccess decides which outcomes count against the analytics API.
// Client-side rejections (4xx, including "no data" 404s) and cancellations
// say nothing about the server's health.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	var fe *powercurve.FetchError
	if errors.As(err, &fe) && fe.StatusCode >= 400 && fe.StatusCode < 500 {
		return true
	}
	return false
}

// doRequest executes one GET through the circuit breaker and returns the
// response of a 2xx reply. There are no retries; every failure is returned
// as a *powercurve.FetchError and the caller owns the response body.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	url string,
) (*http.Response, error) {
	if client == nil {
		return nil, &powercurve.FetchError{Kind: powercurve.KindNetwork, Err: errNoHTTPClient}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &powercurve.FetchError{Kind: powercurve.KindNetwork, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, &powercurve.FetchError{Kind: powercurve.KindNetwork, Err: execErr}
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		drainAndClose(resp)
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, &powercurve.FetchError{Kind: powercurve.KindNoData, StatusCode: resp.StatusCode, Err: errNoData}
		case resp.StatusCode >= 500:
			return nil, &powercurve.FetchError{Kind: powercurve.KindServer, StatusCode: resp.StatusCode, Err: errServerError}
		default:
			return nil, &powercurve.FetchError{
				Kind:       powercurve.KindServer,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode),
			}
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &powercurve.FetchError{Kind: powercurve.KindNetwork, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, &powercurve.FetchError{Kind: powercurve.KindNetwork, Err: fmt.Errorf("unexpected result type from circuit breaker")}
	}
	return resp, nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func decodeError(err error) error {
	return &powercurve.FetchError{Kind: powercurve.KindDecode, Err: err}
}
