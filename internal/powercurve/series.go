package powercurve

// Classify returns the confidence of a point backed by readingCount readings.
func Classify(readingCount int64) Confidence {
	if readingCount > HighConfidenceReadings {
		return ConfidenceHigh
	}
	return ConfidenceLow
}

// MapSeries converts API records into render-ready points.
// Records are renamed and annotated only; order and count are preserved.
func MapSeries(raw []RawCurvePoint) Series {
	series := make(Series, 0, len(raw))
	for _, r := range raw {
		series = append(series, PowerCurvePoint{
			WindSpeed:    r.WindSpeed,
			Power:        r.AveragePower,
			ReadingCount: r.ReadingCount,
			Confidence:   Classify(r.ReadingCount),
		})
	}
	return series
}

// HighConfidenceCount returns how many points in s are high confidence.
func (s Series) HighConfidenceCount() int {
	n := 0
	for _, p := range s {
		if p.Confidence == ConfidenceHigh {
			n++
		}
	}
	return n
}
