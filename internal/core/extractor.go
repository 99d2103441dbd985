package core

import "context"

// TextExtractor converts provider markup (HTML summaries and the like) into
// plain text suitable for embedding.
type TextExtractor interface {
	ExtractText(ctx context.Context, r []byte, contentType string) (string, error)
}
