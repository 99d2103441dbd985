package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/bostadsdata/internal/core"
)

// htmlBreaks are the elements that start a new line of text.
var htmlBreaks = []string{"br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6"}

var _ core.TextExtractor = (*DocconvExtractor)(nil)

// DocconvExtractor implements core.TextExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}

func NewDocconvExtractor(useReadability bool) *DocconvExtractor {
	return &DocconvExtractor{useReadability: useReadability}
}

// ExtractText converts r according to contentType and collapses the result
// into single-spaced lines. HTML fragments are read in-process by docconv's
// lenient XML tokenizer and malformed markup is an error. Other types go
// through docconv.Convert.
func (e *DocconvExtractor) ExtractText(ctx context.Context, r []byte, contentType string) (string, error) {
	if len(bytes.TrimSpace(r)) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var body string
	switch mediaType(contentType) {
	case "text/html", "application/xhtml+xml":
		text, err := docconv.XMLToText(bytes.NewReader(r), htmlBreaks, nil, false)
		if err != nil {
			return "", fmt.Errorf("html to text: %w", err)
		}
		body = text
	default:
		res, err := docconv.Convert(bytes.NewReader(r), contentType, e.useReadability)
		if err != nil {
			return "", fmt.Errorf("docconv %s: %w", contentType, err)
		}
		body = res.Body
	}

	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
