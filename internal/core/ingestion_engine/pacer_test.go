package ingestion_engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSleepsConfiguredDelay(t *testing.T) {
	var slept []time.Duration
	p := NewPacer(5 * time.Second)
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	require.NoError(t, p.Pace(context.Background()))
	require.NoError(t, p.Pace(context.Background()))
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, slept)
}

func TestPacerZeroAndNil(t *testing.T) {
	var nilPacer *Pacer
	assert.NoError(t, nilPacer.Pace(context.Background()))
	assert.NoError(t, NewPacer(0).Pace(context.Background()))
}

func TestPacerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := NewPacer(time.Hour).Pace(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
