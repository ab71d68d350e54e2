package powercurve

// The functions below are pure projections of fetch outcomes onto a ViewState.
// Each one touches only its own slice of the view.

// NewViewState returns the state for a fresh dispatch: loading, no data.
func NewViewState(generation uint64, p Params) ViewState {
	return ViewState{
		Generation:        generation,
		SelectedTurbineID: p.TurbineID,
		DateRange:         p.Range,
		Series:            Series{},
		Status:            StatusLoading,
	}
}

// ApplyPowerCurve projects the power curve outcome onto v.
func ApplyPowerCurve(v ViewState, series Series, err error) ViewState {
	if err != nil {
		v.Series = Series{}
		v.Status = StatusError
		v.ErrorMessage = FailureMessage
		v.ErrorKind = KindOf(err)
		return v
	}

	if series == nil {
		series = Series{}
	}
	v.Series = series
	v.ErrorMessage = ""
	v.ErrorKind = ""
	if len(series) == 0 {
		v.Status = StatusEmpty
	} else {
		v.Status = StatusReady
	}
	return v
}

// ApplyStatistics projects the statistics outcome onto v. Failures clear the
// statistics and never change the status.
func ApplyStatistics(v ViewState, stats *Statistics, err error) ViewState {
	if err != nil {
		v.Statistics = nil
		return v
	}
	v.Statistics = stats
	return v
}
