package ingestion_engine

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

// Diff returns the records whose natural key is absent from existing, in
// input order.
func Diff[R core.Record](records []R, existing core.KeySet) []R {
	out := make([]R, 0, len(records))
	for _, r := range records {
		if !existing.Has(r.NaturalKey()) {
			out = append(out, r)
		}
	}
	return out
}

// Dedupe keeps the first record for every natural key. A single upsert
// statement batch may not touch the same conflict row twice.
func Dedupe[R core.Record](records []R) (kept []R, dropped int) {
	seen := make(map[string]struct{}, len(records))
	kept = make([]R, 0, len(records))
	for _, r := range records {
		k := r.NaturalKey().String()
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

// TextHash fingerprints embeddable text so unchanged records keep their
// stored vectors.
func TextHash(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
