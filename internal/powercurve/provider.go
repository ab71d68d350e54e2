package powercurve

import (
	"context"
)

// RawCurvePoint is a power curve record as returned by the analytics API.
type RawCurvePoint struct {
	WindSpeed    float64
	AveragePower float64
	ReadingCount int64
}

// Source abstracts the remote analytics API.
type Source interface {
	FetchCatalog(ctx context.Context) ([]TurbineSummary, error)
	FetchPowerCurve(ctx context.Context, turbineID int64, r DateRange) ([]RawCurvePoint, error)
	FetchStatistics(ctx context.Context, turbineID int64, r DateRange) (Statistics, error)
}

// Store holds the current ViewState and applies fetch outcomes to it.
// Apply methods must ignore outcomes whose generation is not the current one
// and report whether the outcome was applied.
type Store interface {
	Reset(generation uint64, p Params) ViewState
	ApplyPowerCurve(generation uint64, series Series, err error) bool
	ApplyStatistics(generation uint64, stats *Statistics, err error) bool
	Current() ViewState
	Subscribe() (<-chan ViewState, func())
}
