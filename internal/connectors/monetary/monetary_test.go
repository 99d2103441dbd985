package monetary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
)

func TestParseParams(t *testing.T) {
	now := time.Date(2025, 3, 31, 15, 0, 0, 0, time.UTC)

	p, err := ParseParams("", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", p.From.Format(time.DateOnly))
	assert.Equal(t, "2025-03-31", p.To.Format(time.DateOnly))

	p, err = ParseParams("2025-01-01", "2025-01-31", now)
	require.NoError(t, err)
	assert.Equal(t, 1, p.From.Day())

	tests := []struct {
		from, to, param string
	}{
		{"2025-01-01", "", "dateTo"},
		{"", "2025-01-31", "dateFrom"},
		{"2025-13-01", "2025-01-31", "dateFrom"},
		{"2025-01-01", "31/01/2025", "dateTo"},
		{"2025-02-01", "2025-01-31", "dateTo"},
	}
	for _, tt := range tests {
		_, err := ParseParams(tt.from, tt.to, now)
		var ve *core.ValidationError
		require.ErrorAs(t, err, &ve, tt)
		assert.Equal(t, tt.param, ve.Param)
	}
}

func TestFetchCallsOncePerSeries(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		if strings.Contains(r.URL.Path, "SECBREPOEFF") {
			_, _ = w.Write([]byte(`[{"date":"2025-01-02","value":2.5},{"date":"2025-01-03","value":null}]`))
			return
		}
		_, _ = w.Write([]byte(`[{"date":"2025-01-02","value":2.25}]`))
	}))
	defer srv.Close()

	src := config.Source{
		URL: srv.URL + "/swea/v1/Observations/",
		Series: []config.Series{
			{ID: "SECBREPOEFF", Label: "Styrränta"},
			{ID: "SECBDEPOEFF", Label: "Inlåningsränta"},
		},
	}
	p, err := ParseParams("2025-01-01", "2025-01-31", time.Now())
	require.NoError(t, err)
	ds := New(src, connectors.NewClient(Name, time.Second, connectors.WithCallDelay(10*time.Millisecond)), p)

	raws, err := ds.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/swea/v1/Observations/SECBREPOEFF/2025-01-01/2025-01-31",
		"/swea/v1/Observations/SECBDEPOEFF/2025-01-01/2025-01-31",
	}, paths)
	require.Len(t, raws, 3)

	n := ds.Normalize(raws[0])
	require.True(t, n.OK)
	assert.Equal(t, []string{"SECBREPOEFF", "2025-01-02"}, []string(n.Record.NaturalKey()))
	assert.Equal(t, "Styrränta", n.Record.EmbeddableText())

	assert.Nil(t, ds.Normalize(raws[1]).Record.Value)
	assert.False(t, ds.Normalize(Raw{SeriesID: "X", Date: "soon"}).OK)
}

func TestFetchStopsAtFirstFailingSeries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := config.Source{URL: srv.URL, Series: []config.Series{{ID: "A"}, {ID: "B"}}}
	p, _ := ParseParams("", "", time.Now())
	_, err := New(src, connectors.NewClient(Name, time.Second), p).Fetch(context.Background())

	var se *core.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, calls)
}
