package core

import (
	"context"
	"time"
)

// Normalized is the outcome of normalizing one raw record: either a record or
// an explicit skip.
type Normalized[R Record] struct {
	Record R
	OK     bool
	Reason string
}

func Some[R Record](r R) Normalized[R] {
	return Normalized[R]{Record: r, OK: true}
}

func Skip[R Record](reason string) Normalized[R] {
	return Normalized[R]{Reason: reason}
}

// Dataset is one upstream integration: a connector plus its normalizer.
// Run parameters are bound when the dataset is constructed.
type Dataset[Raw any, R Record] interface {
	Name() string
	Table() *Table
	// Pace is the delay inserted after each batch.
	Pace() time.Duration
	Fetch(ctx context.Context) ([]Raw, error)
	Normalize(raw Raw) Normalized[R]
}
