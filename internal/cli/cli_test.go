package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/core/ingestion_engine"
	"github.com/markdave123-py/bostadsdata/internal/logger"
	"github.com/markdave123-py/bostadsdata/internal/models"
	"github.com/markdave123-py/bostadsdata/internal/services"
)

type fakeRuntime struct {
	plans     []services.Plan
	runErr    error
	hits      []core.SearchHit
	searchErr error
	searched  services.SearchRequest
	closed    bool
}

func (f *fakeRuntime) RunAll(_ context.Context, plans []services.Plan) ([]ingestion_engine.Summary, error) {
	f.plans = plans
	var out []ingestion_engine.Summary
	for _, p := range plans {
		state := ingestion_engine.StateDone
		if f.runErr != nil {
			state = ingestion_engine.StateFailed
		}
		out = append(out, ingestion_engine.Summary{Dataset: p.Dataset, State: state, Fetched: 3, Upserted: 3})
	}
	return out, f.runErr
}

func (f *fakeRuntime) Search(_ context.Context, req services.SearchRequest) ([]core.SearchHit, error) {
	f.searched = req
	return f.hits, f.searchErr
}

func (f *fakeRuntime) Close() { f.closed = true }

type harness struct {
	rt      *fakeRuntime
	calls   int
	factErr error
	cfg     *config.Config
}

func newHarness() *harness {
	return &harness{
		rt: &fakeRuntime{},
		cfg: &config.Config{
			DatabaseURL:  "postgres://localhost/test",
			EmbedDim:     4,
			BatchSize:    10,
			AIChatAgent:  config.ProviderGemini,
			GeminiAPIKey: "key",
		},
	}
}

func (h *harness) run(t *testing.T, args ...string) (int, string) {
	t.Helper()
	e := &env{
		cfg: h.cfg,
		log: logger.Nop(),
		factory: func(context.Context, *config.Config) (Runtime, error) {
			h.calls++
			if h.factErr != nil {
				return nil, h.factErr
			}
			return h.rt, nil
		},
		now: func() time.Time { return time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC) },
	}
	buf := new(bytes.Buffer)
	root := newRootCmd(e)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	return ExitCode(root.ExecuteContext(context.Background())), buf.String()
}

func TestUsageErrorsExitBeforeAnyIO(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"date range missing end", []string{"monetary", "--dateFrom=2025-01-01"}},
		{"date range missing start", []string{"monetary", "--dateTo=2025-01-31"}},
		{"reversed date range", []string{"monetary", "--dateFrom=2025-02-01", "--dateTo=2025-01-01"}},
		{"missing category", []string{"buildings"}},
		{"unknown category", []string{"statistics", "--category=weather"}},
		{"bad date", []string{"police", "--date=yesterday"}},
		{"unknown flag", []string{"schools", "--verbose"}},
		{"unknown command", []string{"weather"}},
		{"positional argument", []string{"schools", "extra"}},
		{"empty search query", []string{"search", "--dataset=police"}},
		{"unknown search dataset", []string{"search", "--dataset=weather", "--query=brand"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			code, _ := h.run(t, tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Zero(t, h.calls, "runtime must not be built")
		})
	}
}

func TestInvalidConfigIsUsageError(t *testing.T) {
	h := newHarness()
	h.cfg.DatabaseURL = ""

	code, _ := h.run(t, "schools")
	assert.Equal(t, ExitUsage, code)
	assert.Zero(t, h.calls)
}

func TestTrafficWithoutKeyIsUsageError(t *testing.T) {
	h := newHarness()
	code, _ := h.run(t, "traffic")
	assert.Equal(t, ExitUsage, code)
	assert.Zero(t, h.calls)
}

func TestIngestSuccess(t *testing.T) {
	h := newHarness()
	code, out := h.run(t, "monetary", "--dateFrom=2025-01-01", "--dateTo=2025-01-31")

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, 1, h.calls)
	require.Len(t, h.rt.plans, 1)
	assert.Equal(t, "monetary", h.rt.plans[0].Dataset)
	assert.True(t, h.rt.closed)
	assert.Contains(t, out, "monetary")
	assert.Contains(t, out, "upserted=3")
}

func TestIngestRunFailureExitsTwo(t *testing.T) {
	h := newHarness()
	h.rt.runErr = &core.FetchError{Dataset: "schools", Err: &core.StatusError{StatusCode: 503, URL: "https://example.test"}}

	code, out := h.run(t, "schools")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "failed")
	assert.True(t, h.rt.closed)
}

func TestFactoryFailureExitsTwo(t *testing.T) {
	h := newHarness()
	h.factErr = errors.New("ping db: connection refused")

	code, _ := h.run(t, "buildings", "--category=residential")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, 1, h.calls)
}

func TestAllPlansEveryDataset(t *testing.T) {
	h := newHarness()
	h.cfg.TrafikverketAPIKey = "key"

	code, _ := h.run(t, "all")
	require.Equal(t, ExitOK, code)

	seen := map[string]int{}
	for _, p := range h.rt.plans {
		seen[p.Dataset]++
	}
	for _, name := range services.Datasets {
		assert.Positive(t, seen[name], name)
	}
	assert.Equal(t, 4, seen["buildings"])
	assert.Equal(t, 4, seen["statistics"])
}

func TestSearchCommand(t *testing.T) {
	h := newHarness()
	h.rt.hits = []core.SearchHit{{NaturalKey: models.NaturalKey{"SE0101", "2024"}, Text: "Befolkning i Stockholm", Similarity: 0.91}}

	code, out := h.run(t, "search", "--dataset=statistics", "--query=befolkning", "-n", "5")
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, 5, h.rt.searched.Limit)
	assert.Contains(t, out, "SE0101/2024")
	assert.Contains(t, out, "0.910")

	h.rt.hits = nil
	_, out = h.run(t, "search", "--dataset=statistics", "--query=befolkning")
	assert.Contains(t, out, "No results found.")

	h.rt.searchErr = errors.New("embed query: quota")
	code, _ = h.run(t, "search", "--dataset=statistics", "--query=befolkning")
	assert.Equal(t, ExitFailure, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(&core.ValidationError{Param: "date", Msg: "bad"}))
	assert.Equal(t, ExitFailure, ExitCode(failed(errors.New("boom"))))
	assert.Nil(t, failed(nil))
}

func TestExecuteNoArgsPrintsHelp(t *testing.T) {
	h := newHarness()
	code := Execute(context.Background(), h.cfg, nil, nil, []string{})
	assert.Equal(t, ExitOK, code)
}
