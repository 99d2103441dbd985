package core

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// configured dimensionality.
var ErrDimensionMismatch = errors.New("embedding dimensionality mismatch")

// StatusError is returned by connectors for non-2xx upstream responses. The
// body is never decoded.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// ValidationError reports bad run parameters, detected before any I/O.
type ValidationError struct {
	Param string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Param == "" {
		return e.Msg
	}
	return fmt.Sprintf("--%s: %s", e.Param, e.Msg)
}

// FetchError wraps any failure to fetch a dataset. The store has not been
// touched when it is returned.
type FetchError struct {
	Dataset string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Dataset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BatchError wraps an embedding or upsert failure. Batches before Batch are
// committed; Batch and later are not.
type BatchError struct {
	Dataset string
	Batch   int
	Total   int
	Stage   string
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s batch %d/%d %s: %v", e.Dataset, e.Batch, e.Total, e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
