package ingestion_engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/logger"
)

// State is a step of a dataset run.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateDiffing     State = "diffing"
	StateBatchLoop   State = "batch_loop"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Summary is the terminal report of one dataset run.
type Summary struct {
	RunID      string        `json:"run_id"`
	Dataset    string        `json:"dataset"`
	State      State         `json:"state"`
	Fetched    int           `json:"fetched"`
	Normalized int           `json:"normalized"`
	Skipped    int           `json:"skipped"`
	Duplicates int           `json:"duplicates"`
	Fresh      int           `json:"fresh"`
	Batches    int           `json:"batches"`
	Upserted   int           `json:"upserted"`
	Embedded   int           `json:"embedded"`
	Reused     int           `json:"reused"`
	Duration   time.Duration `json:"duration"`
}

// Deps are the collaborators every dataset run shares.
type Deps struct {
	Store    core.Store
	Upserter *BatchUpserter
	Log      *logger.Logger
}

type run struct {
	summary Summary
	log     *logger.Logger
}

func (r *run) enter(s State) {
	r.summary.State = s
	r.log.Debug("run state", "state", s)
}

// Run drives one dataset through fetch, normalize, diff and the batch loop.
// Everything is sequential; ctx cancellation aborts at the next I/O or pacing
// step.
func Run[Raw any, R core.Record](ctx context.Context, ds core.Dataset[Raw, R], deps Deps) (Summary, error) {
	start := time.Now()
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	r := &run{
		summary: Summary{RunID: uuid.NewString(), Dataset: ds.Name(), State: StateIdle},
	}
	r.log = log.With("dataset", ds.Name(), "run_id", r.summary.RunID)

	fail := func(err error) (Summary, error) {
		r.enter(StateFailed)
		r.summary.Duration = time.Since(start)
		r.log.Error("run failed", "state", StateFailed, "error", err)
		return r.summary, err
	}

	r.enter(StateFetching)
	raws, err := ds.Fetch(ctx)
	if err != nil {
		return fail(&core.FetchError{Dataset: ds.Name(), Err: err})
	}
	r.summary.Fetched = len(raws)
	r.log.Info("fetched", "records", len(raws))

	r.enter(StateNormalizing)
	records := make([]R, 0, len(raws))
	for _, raw := range raws {
		n := ds.Normalize(raw)
		if !n.OK {
			r.summary.Skipped++
			r.log.Debug("record skipped", "reason", n.Reason)
			continue
		}
		records = append(records, n.Record)
	}
	r.summary.Normalized = len(records)
	records, r.summary.Duplicates = Dedupe(records)

	r.enter(StateDiffing)
	table := ds.Table()
	existing, err := deps.Store.ExistingKeys(ctx, table)
	if err != nil {
		return fail(err)
	}
	fresh := records
	if table.Precheck {
		fresh = Diff(records, existing)
	}
	r.summary.Fresh = len(fresh)
	r.log.Info("diffed", "normalized", len(records), "existing", len(existing), "fresh", len(fresh))

	if len(fresh) > 0 {
		r.enter(StateBatchLoop)
		generic := make([]core.Record, len(fresh))
		for i, rec := range fresh {
			generic[i] = rec
		}
		stats, err := deps.Upserter.Upsert(ctx, ds.Name(), table, generic, existing, NewPacer(ds.Pace()))
		r.summary.Batches = stats.Batches
		r.summary.Upserted = stats.Records
		r.summary.Embedded = stats.Embedded
		r.summary.Reused = stats.Reused
		if err != nil {
			return fail(err)
		}
	}

	r.enter(StateDone)
	r.summary.Duration = time.Since(start)
	r.log.Info("run finished",
		"fetched", r.summary.Fetched,
		"skipped", r.summary.Skipped,
		"fresh", r.summary.Fresh,
		"upserted", r.summary.Upserted,
		"batches", r.summary.Batches,
		"duration", r.summary.Duration,
	)
	return r.summary, nil
}
