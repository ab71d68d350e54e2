package powercurve

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Default selection, a window known to contain data.
var (
	DefaultTurbineID int64 = 1
	DefaultStart           = MustDate("2016-01-01")
	DefaultEnd             = MustDate("2016-03-31")
)

// DefaultParams returns the selection the application starts with.
func DefaultParams() Params {
	return Params{
		TurbineID: DefaultTurbineID,
		Range:     DateRange{Start: DefaultStart, End: DefaultEnd},
	}
}

// ParameterStore holds the operator's selection. It performs no I/O; every
// setter reports whether the parameter triple actually changed.
type ParameterStore struct {
	mu     sync.RWMutex
	params Params
}

// NewParameterStore creates a store seeded with p.
func NewParameterStore(p Params) *ParameterStore {
	p.Range = normalizeRange(p.Range)
	return &ParameterStore{params: p}
}

// Params returns the current selection.
func (s *ParameterStore) Params() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetTurbine selects a turbine.
func (s *ParameterStore) SetTurbine(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.params.TurbineID == id {
		return false
	}
	s.params.TurbineID = id
	return true
}

// SetStartDate selects the first day of the range.
func (s *ParameterStore) SetStartDate(d time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.params.Range
	r.Start = d
	return s.setRangeLocked(r)
}

// SetEndDate selects the last day of the range.
func (s *ParameterStore) SetEndDate(d time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.params.Range
	r.End = d
	return s.setRangeLocked(r)
}

// SetRange selects both ends of the range at once.
func (s *ParameterStore) SetRange(start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setRangeLocked(DateRange{Start: start, End: end})
}

// SetParams replaces the whole selection at once.
func (s *ParameterStore) SetParams(p Params) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setParamsLocked(p)
}

func (s *ParameterStore) setParamsLocked(p Params) (bool, error) {
	r := normalizeRange(p.Range)
	if err := checkRange(r); err != nil {
		return false, err
	}
	if s.params.TurbineID == p.TurbineID && sameRange(s.params.Range, r) {
		return false, nil
	}
	s.params = Params{TurbineID: p.TurbineID, Range: r}
	return true, nil
}

// Update applies fn to a copy of the selection under the store lock, so
// partial updates from concurrent callers never overwrite each other. An
// error from fn, or an inverted result, leaves the selection unchanged.
func (s *ParameterStore) Update(fn func(p *Params) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.params
	if err := fn(&next); err != nil {
		return false, err
	}
	return s.setParamsLocked(next)
}

func (s *ParameterStore) setRangeLocked(r DateRange) (bool, error) {
	r = normalizeRange(r)
	if err := checkRange(r); err != nil {
		return false, err
	}
	if sameRange(s.params.Range, r) {
		return false, nil
	}
	s.params.Range = r
	return true, nil
}

// checkRange rejects ranges whose start is after their end. Ranges with a
// missing end are accepted; they simply never trigger a fetch.
func checkRange(r DateRange) error {
	if err := validate.Struct(r); err != nil {
		return ErrInvertedRange
	}
	return nil
}

func normalizeRange(r DateRange) DateRange {
	return DateRange{Start: truncateDay(r.Start), End: truncateDay(r.End)}
}

func sameRange(a, b DateRange) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}
