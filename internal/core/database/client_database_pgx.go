package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

var _ core.Store = (*DatabaseClient)(nil)

type DatabaseClient struct {
	db *sql.DB
}

// NewDatabaseClient opens the pool, bootstraps the schema for the configured
// dimensionality and checks every vector column against it.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	c := &DatabaseClient{db: db}
	if err := c.ValidateDimensions(ctx, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// buildDSN appends certificate verification to DATABASE_URL when
// SSL_CERT_PATH is set.
func buildDSN(cfg *config.Config) (string, error) {
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.SslCertPath == "" {
		return cfg.DatabaseURL, nil
	}
	if _, err := os.Stat(cfg.SslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
	}

	u, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", cfg.SslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) ExistingKeys(ctx context.Context, t *core.Table) (core.KeySet, error) {
	rows, err := c.db.QueryContext(ctx, existingKeysSQL(t))
	if err != nil {
		return nil, fmt.Errorf("existing keys %s: %w", t.Name, err)
	}
	defer rows.Close()

	out := core.KeySet{}
	for rows.Next() {
		var key, hash string
		if err := rows.Scan(&key, &hash); err != nil {
			return nil, err
		}
		out[key] = hash
	}
	return out, rows.Err()
}

func (c *DatabaseClient) WithTx(ctx context.Context, fn func(core.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (p *pgTx) Upsert(ctx context.Context, t *core.Table, row core.Row) error {
	key := row.Record.NaturalKey()
	if len(key) != len(t.KeyColumns) {
		return fmt.Errorf("%s: natural key has %d parts, table declares %d", t.Name, len(key), len(t.KeyColumns))
	}
	values := row.Record.Values()
	if len(values) != len(t.Columns) {
		return fmt.Errorf("%s: record has %d values, table declares %d columns", t.Name, len(values), len(t.Columns))
	}

	args := make([]any, 0, len(key)+len(values)+4)
	for _, k := range key {
		args = append(args, k)
	}
	args = append(args, values...)
	args = append(args, row.Text, row.TextHash)
	if t.Granularity == core.EmbedPerRecord {
		args = append(args, vectorParam(row.Embedding), row.Refresh)
	}

	var id int64
	if err := p.tx.QueryRowContext(ctx, upsertSQL(t), args...).Scan(&id); err != nil {
		return err
	}
	if t.Granularity != core.EmbedPerChunk || !row.Refresh {
		return nil
	}

	if _, err := p.tx.ExecContext(ctx, deleteChunksSQL(t), id); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	stmt, err := p.tx.PrepareContext(ctx, insertChunkSQL(t))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ch := range row.Chunks {
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), id, ch.Position, ch.Text, ch.TokenCount, vectorParam(ch.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", ch.Position, err)
		}
	}
	return nil
}

// vectorParam maps an absent embedding to SQL NULL.
func vectorParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// Search finds the rows most similar to query.
func (c *DatabaseClient) Search(ctx context.Context, t *core.Table, query []float32, limit int, minSimilarity float64) ([]core.SearchHit, error) {
	if len(query) == 0 {
		return nil, errors.New("empty query vector")
	}
	rows, err := c.db.QueryContext(ctx, searchSQL(t), pgvector.NewVector(query), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []core.SearchHit
	for rows.Next() {
		var (
			key string
			hit core.SearchHit
		)
		if err := rows.Scan(&key, &hit.Text, &hit.Similarity); err != nil {
			return nil, err
		}
		hit.NaturalKey = models.NaturalKey(strings.Split(key, models.KeySeparator))
		out = append(out, hit)
	}
	return out, rows.Err()
}

// ValidateDimensions fails if any vector column's declared width differs
// from dim.
func (c *DatabaseClient) ValidateDimensions(ctx context.Context, dim int) error {
	rows, err := c.db.QueryContext(ctx, vectorColumnsSQL)
	if err != nil {
		return fmt.Errorf("read vector columns: %w", err)
	}
	defer rows.Close()

	var cols []vectorColumn
	for rows.Next() {
		var vc vectorColumn
		if err := rows.Scan(&vc.Table, &vc.Column, &vc.Type); err != nil {
			return err
		}
		cols = append(cols, vc)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return checkVectorColumns(cols, dim)
}
