package store

import (
	"sync"
	"time"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

// MemoryStore is a concurrency-safe in-memory holder of the current view state.
// Outcomes are applied only when they belong to the current generation.
type MemoryStore struct {
	mu sync.RWMutex

	view       powercurve.ViewState
	generation uint64

	subscribers map[int]chan powercurve.ViewState
	nextID      int

	now func() time.Time
}

var _ powercurve.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store whose view is loading with no parameters.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		subscribers: make(map[int]chan powercurve.ViewState),
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.view = powercurve.NewViewState(0, powercurve.Params{})
	s.view.UpdatedAt = s.now()
	return s
}

// Reset starts a new generation with a loading view for p. Generations older
// than the current one are ignored.
func (s *MemoryStore) Reset(generation uint64, p powercurve.Params) powercurve.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation < s.generation {
		return s.view
	}
	s.generation = generation
	s.view = powercurve.NewViewState(generation, p)
	s.commitLocked()
	return s.view
}

// ApplyPowerCurve applies a power curve outcome if it belongs to the current generation.
func (s *MemoryStore) ApplyPowerCurve(generation uint64, series powercurve.Series, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.view = powercurve.ApplyPowerCurve(s.view, series, err)
	s.commitLocked()
	return true
}

// ApplyStatistics applies a statistics outcome if it belongs to the current generation.
func (s *MemoryStore) ApplyStatistics(generation uint64, stats *powercurve.Statistics, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return false
	}
	s.view = powercurve.ApplyStatistics(s.view, stats, err)
	s.commitLocked()
	return true
}

// Current returns the current view state.
func (s *MemoryStore) Current() powercurve.ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Subscribe returns a channel that always holds the newest view state,
// starting with the current one. Undelivered older states are replaced.
// The returned func unsubscribes and closes the channel.
func (s *MemoryStore) Subscribe() (<-chan powercurve.ViewState, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan powercurve.ViewState, 1)
	ch <- s.view

	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
}

func (s *MemoryStore) commitLocked() {
	s.view.UpdatedAt = s.now()

	for _, ch := range s.subscribers {
		// Only this goroutine sends while the lock is held, so after
		// draining there is room for the new state.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.view:
		default:
		}
	}
}
