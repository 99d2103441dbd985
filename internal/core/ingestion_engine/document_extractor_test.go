package ingestion_engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocconvExtractorHTMLFragments(t *testing.T) {
	ex := NewDocconvExtractor(false)
	ctx := context.Background()

	tests := []struct {
		name        string
		in          string
		contentType string
		want        []string
	}{
		{"bare fragment", "<p>Flerbostadshus <b>1954</b></p>", "text/html", []string{"Flerbostadshus 1954"}},
		{"nested blocks", "<div><p>Villa   i Solna</p><p>Byggår 1962</p></div>", "text/html", []string{"Villa i Solna", "Byggår 1962"}},
		{"full document", "<html><body><p>Radhus</p></body></html>", "text/html", []string{"Radhus"}},
		{"charset parameter", "<span>Kontor</span>", "text/html; charset=utf-8", []string{"Kontor"}},
		{"xhtml", "<p>Skola</p>", "application/xhtml+xml", []string{"Skola"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ex.ExtractText(ctx, []byte(tt.in), tt.contentType)
			require.NoError(t, err)
			require.NotEmpty(t, text)
			for _, w := range tt.want {
				assert.Contains(t, text, w)
			}
			assert.NotContains(t, text, "<")
			assert.NotContains(t, text, "  ")
		})
	}
}

func TestDocconvExtractorMalformedHTML(t *testing.T) {
	_, err := NewDocconvExtractor(false).ExtractText(context.Background(), []byte("<p>Villa <b"), "text/html")
	assert.Error(t, err)
}

func TestDocconvExtractorEmptyAndCancelled(t *testing.T) {
	ex := NewDocconvExtractor(false)

	text, err := ex.ExtractText(context.Background(), []byte("  \n"), "text/html")
	require.NoError(t, err)
	assert.Empty(t, text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ex.ExtractText(ctx, []byte("<p>x</p>"), "text/html")
	assert.ErrorIs(t, err, context.Canceled)
}
