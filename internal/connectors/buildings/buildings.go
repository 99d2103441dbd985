// Package buildings ingests the cadastral building registry Atom feeds, one
// feed per category.
package buildings

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

const Name = "buildings"

var Table = &core.Table{
	Name:       "building_entries",
	KeyColumns: []string{"entry_id", "category_id"},
	Columns:    models.BuildingEntryColumns,
}

// Params carries the resolved --category.
type Params struct {
	Key      string
	Category config.Category
}

// ParseParams resolves the required --category against the catalog.
func ParseParams(src config.Source, category string) (Params, error) {
	cat, err := src.Category(category)
	if err != nil {
		return Params{}, &core.ValidationError{Param: "category", Msg: err.Error()}
	}
	return Params{Key: category, Category: cat}, nil
}

type feed struct {
	Entries []Raw `xml:"entry"`
}

// Raw is one Atom entry. Missing optional elements decode as empty strings.
type Raw struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Updated string `xml:"updated"`
	Summary struct {
		Type string `xml:"type,attr"`
		Body string `xml:",chardata"`
	} `xml:"summary"`
	Polygon string `xml:"http://www.georss.org/georss polygon"`

	// SummaryText is Summary with markup removed, filled in by Fetch.
	SummaryText string `xml:"-"`
	// SummaryErr is set when the summary markup could not be converted.
	// Normalize skips such entries.
	SummaryErr string `xml:"-"`
}

type Dataset struct {
	src       config.Source
	client    *connectors.Client
	extractor core.TextExtractor
	params    Params
}

var _ core.Dataset[Raw, models.BuildingEntry] = (*Dataset)(nil)

func New(src config.Source, client *connectors.Client, extractor core.TextExtractor, params Params) *Dataset {
	return &Dataset{src: src, client: client, extractor: extractor, params: params}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	body, err := d.client.Get(connectors.WithArchiveTag(ctx, d.params.Key), d.params.Category.URL, map[string][]string{
		"Accept": {"application/atom+xml, application/xml"},
	})
	if err != nil {
		return nil, err
	}
	var f feed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode atom feed: %w", err)
	}

	for i := range f.Entries {
		e := &f.Entries[i]
		text, err := d.summaryText(ctx, e)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			d.client.Log().Warn("summary extraction failed", "dataset", Name, "entry", e.ID, "error", err)
			e.SummaryErr = err.Error()
			continue
		}
		e.SummaryText = text
	}
	return f.Entries, nil
}

func (d *Dataset) summaryText(ctx context.Context, e *Raw) (string, error) {
	body := strings.TrimSpace(e.Summary.Body)
	switch strings.ToLower(e.Summary.Type) {
	case "html", "xhtml":
		if d.extractor == nil || body == "" {
			return body, nil
		}
		return d.extractor.ExtractText(ctx, []byte(body), "text/html")
	default:
		return body, nil
	}
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.BuildingEntry] {
	id := strings.TrimSpace(raw.ID)
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return core.Skip[models.BuildingEntry](fmt.Sprintf("entry id %q is not a non-negative integer", raw.ID))
	}
	if raw.SummaryErr != "" {
		return core.Skip[models.BuildingEntry](fmt.Sprintf("entry %s summary: %s", id, raw.SummaryErr))
	}
	return core.Some(models.BuildingEntry{
		EntryID:       id,
		CategoryID:    d.params.Category.ID,
		CategoryLabel: d.params.Category.Label,
		Title:         strings.TrimSpace(raw.Title),
		Summary:       raw.SummaryText,
		SourceUpdated: connectors.ParseTime(raw.Updated),
		Polygon:       models.ParsePolygon(raw.Polygon),
	})
}
