package ingestion_engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/logger"
)

// Embedder is the batch embedding contract the upserter relies on.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// UpsertStats summarises one BatchUpserter.Upsert call.
type UpsertStats struct {
	Batches  int
	Records  int
	Embedded int
	Reused   int
}

// BatchUpserter embeds and writes records in fixed-size, all-or-nothing
// batches, strictly in order.
type BatchUpserter struct {
	store     core.Store
	embedder  Embedder
	batchSize int
	log       *logger.Logger
}

func NewBatchUpserter(store core.Store, embedder Embedder, batchSize int, log *logger.Logger) *BatchUpserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	if log == nil {
		log = logger.Nop()
	}
	return &BatchUpserter{store: store, embedder: embedder, batchSize: batchSize, log: log}
}

// Partition splits items into contiguous batches of at most size items. The
// last batch may be smaller.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}

// Upsert processes records batch by batch: embed, then write every record in
// one transaction, then pace. The first failing batch aborts the call;
// batches before it stay committed.
func (u *BatchUpserter) Upsert(ctx context.Context, dataset string, table *core.Table, records []core.Record, existing core.KeySet, pacer *Pacer) (UpsertStats, error) {
	var stats UpsertStats
	batches := Partition(records, u.batchSize)

	for i, batch := range batches {
		rows, embedded, err := u.prepare(ctx, table, batch, existing)
		if err != nil {
			return stats, &core.BatchError{Dataset: dataset, Batch: i + 1, Total: len(batches), Stage: "embed", Err: err}
		}

		err = u.store.WithTx(ctx, func(tx core.Tx) error {
			for _, row := range rows {
				if err := tx.Upsert(ctx, table, row); err != nil {
					return fmt.Errorf("upsert %q: %w", row.Record.NaturalKey().String(), err)
				}
			}
			return nil
		})
		if err != nil {
			return stats, &core.BatchError{Dataset: dataset, Batch: i + 1, Total: len(batches), Stage: "upsert", Err: err}
		}

		stats.Batches++
		stats.Records += len(rows)
		stats.Embedded += embedded
		for _, row := range rows {
			if !row.Refresh {
				stats.Reused++
			}
		}
		u.log.Info("batch committed",
			"dataset", dataset,
			"batch", i+1,
			"total", len(batches),
			"records", len(rows),
			"embedded", embedded,
		)

		if i < len(batches)-1 {
			if err := pacer.Pace(ctx); err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

type embedTarget struct {
	row   int
	chunk int
	text  int
}

// prepare hashes and chunks each record's text and embeds everything the
// batch needs in a single call. Identical texts are embedded once. Records
// whose stored hash matches keep their vectors.
func (u *BatchUpserter) prepare(ctx context.Context, table *core.Table, batch []core.Record, existing core.KeySet) ([]core.Row, int, error) {
	rows := make([]core.Row, len(batch))
	var (
		texts   []string
		targets []embedTarget
	)
	textIndex := make(map[string]int)
	add := func(s string) int {
		if idx, ok := textIndex[s]; ok {
			return idx
		}
		textIndex[s] = len(texts)
		texts = append(texts, s)
		return len(texts) - 1
	}

	for i, rec := range batch {
		text := strings.TrimSpace(rec.EmbeddableText())
		hash := TextHash(text)
		prev, stored := existing[rec.NaturalKey().String()]

		row := core.Row{Record: rec, Text: text, TextHash: hash, Refresh: !stored || prev != hash}
		if row.Refresh && text != "" {
			switch table.Granularity {
			case core.EmbedPerChunk:
				row.Chunks = ChunkText(text)
				for c := range row.Chunks {
					targets = append(targets, embedTarget{row: i, chunk: c, text: add(row.Chunks[c].Text)})
				}
			default:
				targets = append(targets, embedTarget{row: i, chunk: -1, text: add(text)})
			}
		}
		rows[i] = row
	}

	if len(texts) == 0 {
		return rows, 0, nil
	}
	vecs, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, 0, err
	}
	if len(vecs) != len(texts) {
		return nil, 0, fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(texts))
	}
	for _, t := range targets {
		if t.chunk < 0 {
			rows[t.row].Embedding = vecs[t.text]
		} else {
			rows[t.row].Chunks[t.chunk].Embedding = vecs[t.text]
		}
	}
	return rows, len(texts), nil
}
