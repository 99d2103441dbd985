package core

import (
	"context"
	"io"

	"github.com/markdave123-py/bostadsdata/internal/models"
)

// Record is a canonical, dataset-typed record ready for upsert.
type Record interface {
	NaturalKey() models.NaturalKey
	// EmbeddableText is the free text the record's vectors are computed from.
	EmbeddableText() string
	// Values returns the mutable column values aligned with Table.Columns.
	Values() []any
}

// Granularity says whether a table stores one vector per record or one row
// per text chunk.
type Granularity int

const (
	EmbedPerRecord Granularity = iota
	EmbedPerChunk
)

// Table declares how a dataset is persisted. KeyColumns is the ordered
// natural key and the upsert conflict target.
type Table struct {
	Name        string
	KeyColumns  []string
	Columns     []string
	Granularity Granularity
	// ChunkTable holds the per-chunk vectors for EmbedPerChunk tables and
	// references Name through ChunkForeignKey.
	ChunkTable      string
	ChunkForeignKey string
	// Precheck filters records whose key is already stored before any
	// embedding work. Append-only datasets set it.
	Precheck bool
}

// VectorTable is the table owning this dataset's embedding column.
func (t *Table) VectorTable() string {
	if t.Granularity == EmbedPerChunk {
		return t.ChunkTable
	}
	return t.Name
}

// KeySet maps stored natural keys to the hash of the text their vectors were
// computed from.
type KeySet map[string]string

func (s KeySet) Has(k models.NaturalKey) bool {
	_, ok := s[k.String()]
	return ok
}

// Chunk is one embedded span of a record's text.
type Chunk struct {
	Position   int
	Text       string
	TokenCount int
	Embedding  []float32
}

// Row is what a transaction writes for one record.
type Row struct {
	Record   Record
	Text     string
	TextHash string
	// Refresh is false when the stored vectors already match TextHash and must
	// be left untouched.
	Refresh   bool
	Embedding []float32
	Chunks    []Chunk
}

// SearchHit is one similarity search result.
type SearchHit struct {
	NaturalKey models.NaturalKey `json:"natural_key"`
	Text       string            `json:"text"`
	Similarity float64           `json:"similarity"`
}

// Tx is a store transaction.
type Tx interface {
	Upsert(ctx context.Context, table *Table, row Row) error
}

// Store abstracts Postgres/pgvector so the pipeline never depends on a
// specific database.
type Store interface {
	ExistingKeys(ctx context.Context, table *Table) (KeySet, error)
	// WithTx commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Tx) error) error
	Search(ctx context.Context, table *Table, query []float32, limit int, minSimilarity float64) ([]SearchHit, error)
	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)
}
