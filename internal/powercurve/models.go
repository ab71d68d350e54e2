package powercurve

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of the power curve view.
type Status string

const (
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
	StatusReady   Status = "ready"
)

// Confidence classifies an aggregated point by how many readings back it.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// HighConfidenceReadings is the reading count a point must exceed to be
// considered high confidence.
const HighConfidenceReadings = 100

// FailureMessage is shown to the operator whenever the power curve cannot be fetched.
const FailureMessage = "Dear user, the available data is from January 1, 2016, to March 31, 2016. Please select a date range within this period."

// DateLayout is the calendar date format used for selections.
const DateLayout = "2006-01-02"

// TurbineSummary is one entry of the turbine catalog.
type TurbineSummary struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ReadingCount int64  `json:"readingCount"`
}

// DateRange is an inclusive range of whole calendar days.
// Start and End are midnight UTC; a zero value means the date is not selected.
type DateRange struct {
	Start time.Time
	End   time.Time `validate:"omitempty,gtefield=Start"`
}

// StartTime returns the API start_time value, the first second of Start.
func (r DateRange) StartTime() string {
	return r.Start.Format(DateLayout) + "T00:00:00"
}

// EndTime returns the API end_time value, the last second of End.
func (r DateRange) EndTime() string {
	return r.End.Format(DateLayout) + "T23:59:59"
}

// Complete reports whether both ends of the range are selected.
func (r DateRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

func (r DateRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start,omitempty"`
		End   string `json:"end,omitempty"`
	}{
		Start: formatDate(r.Start),
		End:   formatDate(r.End),
	})
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// MustDate is ParseDate for constants known to be valid.
func MustDate(s string) time.Time {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Params is the parameter triple that drives fetching.
type Params struct {
	TurbineID int64     `json:"turbineId"`
	Range     DateRange `json:"dateRange"`
}

// Complete reports whether all three parameters are present.
func (p Params) Complete() bool {
	return p.TurbineID != 0 && p.Range.Complete()
}

// PowerCurvePoint is a render-ready point on the power curve.
type PowerCurvePoint struct {
	WindSpeed    float64    `json:"windSpeed"`
	Power        float64    `json:"power"`
	ReadingCount int64      `json:"readingCount"`
	Confidence   Confidence `json:"confidence"`
}

// Series is the power curve in API order.
type Series []PowerCurvePoint

// Statistics is the summary for a turbine over the selected range.
// Any field may be missing from the API response.
type Statistics struct {
	TurbineID    *int64   `json:"turbineId,omitempty"`
	AvgWindSpeed *float64 `json:"avgWindSpeed,omitempty"`
	MinWindSpeed *float64 `json:"minWindSpeed,omitempty"`
	MaxWindSpeed *float64 `json:"maxWindSpeed,omitempty"`
	AvgPower     *float64 `json:"avgPower,omitempty"`
	MinPower     *float64 `json:"minPower,omitempty"`
	MaxPower     *float64 `json:"maxPower,omitempty"`
	TotalEnergy  *float64 `json:"totalEnergy,omitempty"`
	Count        *int64   `json:"count,omitempty"`
}

// ViewState is everything a renderer needs to draw the power curve screen.
type ViewState struct {
	// Generation is the dispatch this state belongs to; 0 before the first dispatch.
	Generation        uint64      `json:"generation"`
	SelectedTurbineID int64       `json:"selectedTurbineId"`
	DateRange         DateRange   `json:"dateRange"`
	Series            Series      `json:"series"`
	Statistics        *Statistics `json:"statistics"`
	Status            Status      `json:"status"`
	ErrorMessage      string      `json:"errorMessage,omitempty"`
	// ErrorKind is diagnostic only; the operator always sees FailureMessage.
	ErrorKind         ErrorKind   `json:"errorKind,omitempty"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}
