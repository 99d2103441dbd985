package ingestion_engine

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

type testRecord struct {
	ID   string
	Body string
}

func (r testRecord) NaturalKey() models.NaturalKey { return models.NaturalKey{r.ID} }
func (r testRecord) EmbeddableText() string        { return r.Body }
func (r testRecord) Values() []any                 { return []any{r.Body} }

var (
	recordTable = &core.Table{Name: "items", KeyColumns: []string{"id"}, Columns: []string{"body"}}
	chunkTable  = &core.Table{
		Name: "notes", KeyColumns: []string{"id"}, Columns: []string{"body"},
		Granularity: core.EmbedPerChunk, ChunkTable: "note_chunks", ChunkForeignKey: "note_id",
		Precheck: true,
	}
)

type storedRow struct {
	TextHash  string
	Embedding []float32
	Chunks    []core.Chunk
}

// memStore is a transactional in-memory store. Writes inside WithTx land in a
// staging copy and become visible only on commit.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]storedRow
	failKey string
	upserts int
	keyErr  error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]map[string]storedRow{}}
}

func (s *memStore) ExistingKeys(_ context.Context, t *core.Table) (core.KeySet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keyErr != nil {
		return nil, s.keyErr
	}
	out := core.KeySet{}
	for k, r := range s.rows[t.Name] {
		out[k] = r.TextHash
	}
	return out, nil
}

type memTx struct {
	store  *memStore
	staged map[string]map[string]storedRow
}

func (tx *memTx) Upsert(_ context.Context, t *core.Table, row core.Row) error {
	key := row.Record.NaturalKey().String()
	if key == tx.store.failKey {
		return errors.New("constraint violation")
	}
	tx.store.upserts++
	if tx.staged[t.Name] == nil {
		tx.staged[t.Name] = map[string]storedRow{}
	}
	prev := tx.staged[t.Name][key]
	next := storedRow{TextHash: row.TextHash, Embedding: prev.Embedding, Chunks: prev.Chunks}
	if row.Refresh {
		next.Embedding = row.Embedding
		next.Chunks = row.Chunks
	}
	tx.staged[t.Name][key] = next
	return nil
}

func (s *memStore) WithTx(_ context.Context, fn func(core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make(map[string]map[string]storedRow, len(s.rows))
	for t, rows := range s.rows {
		staged[t] = make(map[string]storedRow, len(rows))
		for k, r := range rows {
			staged[t][k] = r
		}
	}
	if err := fn(&memTx{store: s, staged: staged}); err != nil {
		return err
	}
	s.rows = staged
	return nil
}

func (s *memStore) Search(context.Context, *core.Table, []float32, int, float64) ([]core.SearchHit, error) {
	return nil, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows[table])
}

func (s *memStore) get(table, key string) (storedRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[table][key]
	return r, ok
}

// hashEmbedder derives a deterministic 4-dim vector from each text.
type hashEmbedder struct {
	calls [][]string
	err   error
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls = append(e.calls, append([]string(nil), texts...))
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		h := fnv.New32a()
		_, _ = h.Write([]byte(t))
		v := float32(h.Sum32()%1000) / 1000
		out[i] = []float32{v, 1 - v, v / 2, 1}
	}
	return out, nil
}

func (e *hashEmbedder) embedded() int {
	n := 0
	for _, c := range e.calls {
		n += len(c)
	}
	return n
}

type fakeDataset struct {
	table   *core.Table
	raws    []testRecord
	err     error
	fetches int
}

func (d *fakeDataset) Name() string        { return "fake" }
func (d *fakeDataset) Table() *core.Table  { return d.table }
func (d *fakeDataset) Pace() time.Duration { return 0 }

func (d *fakeDataset) Fetch(context.Context) ([]testRecord, error) {
	d.fetches++
	return d.raws, d.err
}

func (d *fakeDataset) Normalize(raw testRecord) core.Normalized[testRecord] {
	if raw.ID == "" {
		return core.Skip[testRecord]("missing id")
	}
	return core.Some(raw)
}

func records(ids ...string) []testRecord {
	out := make([]testRecord, len(ids))
	for i, id := range ids {
		out[i] = testRecord{ID: id, Body: "Body of " + id + ". Second sentence."}
	}
	return out
}

func asRecords(in []testRecord) []core.Record {
	out := make([]core.Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}
