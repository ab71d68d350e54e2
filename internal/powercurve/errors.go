package powercurve

import (
	"errors"
	"fmt"
)

var (
	// ErrInvertedRange is returned when a selection would put the start date after the end date.
	ErrInvertedRange = errors.New("start date must not be after end date")
)

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindServer  ErrorKind = "server"
	KindNoData  ErrorKind = "no_data"
	KindDecode  ErrorKind = "decode"
)

// FetchError is returned by a Source when a request to the analytics API fails.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int // set for KindServer and KindNoData
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failure (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, treating unclassified errors as network failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}
