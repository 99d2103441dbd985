package db

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

// Statement builders. Identifiers come from compile-time table descriptors,
// never from user input.

// keyExpr renders the natural key as one string, matching models.NaturalKey.
func keyExpr(prefix string, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = prefix + c
	}
	return `concat_ws(E'\x1f', ` + strings.Join(parts, ", ") + `)`
}

func placeholders(from, n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(p, ", ")
}

func existingKeysSQL(t *core.Table) string {
	return fmt.Sprintf(
		`SELECT %s, text_hash FROM %s WHERE deleted_at IS NULL`,
		keyExpr("", t.KeyColumns), t.Name,
	)
}

// upsertSQL inserts or updates one parent row. Arguments are the key values,
// the mutable column values, embedded_text, text_hash and, for per-record
// tables, the embedding followed by the refresh flag. Key columns and
// created_at are never updated.
func upsertSQL(t *core.Table) string {
	cols := append(append([]string{}, t.KeyColumns...), t.Columns...)
	cols = append(cols, "embedded_text", "text_hash")

	sets := make([]string, 0, len(t.Columns)+5)
	for _, c := range t.Columns {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	sets = append(sets, "embedded_text = EXCLUDED.embedded_text", "text_hash = EXCLUDED.text_hash")

	if t.Granularity == core.EmbedPerRecord {
		cols = append(cols, "embedding")
		refresh := len(cols) + 1
		sets = append(sets, fmt.Sprintf(
			"embedding = CASE WHEN $%d::boolean THEN EXCLUDED.embedding ELSE cur.embedding END", refresh,
		))
	}
	sets = append(sets, "updated_at = now()", "deleted_at = NULL")

	return fmt.Sprintf(
		"INSERT INTO %s AS cur (%s)\nVALUES (%s)\nON CONFLICT (%s) DO UPDATE SET\n\t%s\nRETURNING id",
		t.Name,
		strings.Join(cols, ", "),
		placeholders(1, len(cols)),
		strings.Join(t.KeyColumns, ", "),
		strings.Join(sets, ",\n\t"),
	)
}

func deleteChunksSQL(t *core.Table) string {
	return fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, t.ChunkTable, t.ChunkForeignKey)
}

func insertChunkSQL(t *core.Table) string {
	return fmt.Sprintf(
		`INSERT INTO %s (id, %s, position, text, token_count, embedding) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ChunkTable, t.ChunkForeignKey,
	)
}

// searchSQL ranks by cosine similarity. Arguments: query vector, minimum
// similarity, limit. Chunked tables return the best chunk per parent.
func searchSQL(t *core.Table) string {
	if t.Granularity == core.EmbedPerChunk {
		return fmt.Sprintf(`
SELECT natural_key, text, similarity FROM (
	SELECT %s AS natural_key,
	       c.text,
	       1 - (c.embedding <=> $1) AS similarity,
	       row_number() OVER (PARTITION BY c.%s ORDER BY c.embedding <=> $1) AS rn
	FROM %s c
	JOIN %s p ON p.id = c.%s
	WHERE p.deleted_at IS NULL AND c.embedding IS NOT NULL
) ranked
WHERE rn = 1 AND similarity >= $2
ORDER BY similarity DESC
LIMIT $3`,
			keyExpr("p.", t.KeyColumns), t.ChunkForeignKey, t.ChunkTable, t.Name, t.ChunkForeignKey)
	}
	return fmt.Sprintf(`
SELECT %s AS natural_key,
       embedded_text,
       1 - (embedding <=> $1) AS similarity
FROM %s
WHERE deleted_at IS NULL AND embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
ORDER BY embedding <=> $1
LIMIT $3`,
		keyExpr("", t.KeyColumns), t.Name)
}

const vectorColumnsSQL = `
SELECT c.relname, a.attname, format_type(a.atttypid, a.atttypmod)
FROM pg_attribute a
JOIN pg_class c ON c.oid = a.attrelid
JOIN pg_namespace n ON n.oid = c.relnamespace
JOIN pg_type ty ON ty.oid = a.atttypid
WHERE ty.typname = 'vector'
  AND n.nspname = current_schema()
  AND c.relkind = 'r'
  AND a.attnum > 0
  AND NOT a.attisdropped`

type vectorColumn struct {
	Table  string
	Column string
	Type   string
}

// checkVectorColumns fails on the first column whose declared type is not
// vector(dim).
func checkVectorColumns(cols []vectorColumn, dim int) error {
	want := fmt.Sprintf("vector(%d)", dim)
	for _, c := range cols {
		if c.Type != want {
			return fmt.Errorf("%w: %s.%s is %s, configured %s", core.ErrDimensionMismatch, c.Table, c.Column, c.Type, want)
		}
	}
	return nil
}
