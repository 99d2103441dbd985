// Package statistics ingests PxWeb statistics tables. Every table cell
// becomes one record.
package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

const Name = "statistics"

var Table = &core.Table{
	Name:       "statistic_values",
	KeyColumns: []string{"table_id", "region", "period", "measure"},
	Columns:    models.StatisticValueColumns,
}

type Params struct {
	Key      string
	Category config.Category
}

func ParseParams(src config.Source, category string) (Params, error) {
	cat, err := src.Category(category)
	if err != nil {
		return Params{}, &core.ValidationError{Param: "category", Msg: err.Error()}
	}
	return Params{Key: category, Category: cat}, nil
}

// query selects every value of every variable.
type query struct {
	Query    []any `json:"query"`
	Response struct {
		Format string `json:"format"`
	} `json:"response"`
}

type column struct {
	Code string `json:"code"`
	Text string `json:"text"`
	Type string `json:"type"`
}

type response struct {
	Columns []column `json:"columns"`
	Data    []struct {
		Key    []string `json:"key"`
		Values []string `json:"values"`
	} `json:"data"`
}

// Raw is one flattened table cell.
type Raw struct {
	Region       string
	Period       string
	Measure      string
	MeasureLabel string
	Value        string
}

type Dataset struct {
	src    config.Source
	client *connectors.Client
	params Params
}

var _ core.Dataset[Raw, models.StatisticValue] = (*Dataset)(nil)

func New(src config.Source, client *connectors.Client, params Params) *Dataset {
	return &Dataset{src: src, client: client, params: params}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	q := query{Query: []any{}}
	q.Response.Format = "json"
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	body, err := d.client.Post(connectors.WithArchiveTag(ctx, d.params.Key), d.params.Category.URL, "application/json", payload, nil)
	if err != nil {
		return nil, err
	}
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode pxweb response: %w", err)
	}
	return flatten(resp), nil
}

// flatten turns each data row into one cell per content column. The region
// variable and the time variable become key parts; any other dimension is
// folded into the measure code.
func flatten(resp response) []Raw {
	var (
		dims     []column
		contents []column
	)
	for _, c := range resp.Columns {
		if c.Type == "c" {
			contents = append(contents, c)
		} else {
			dims = append(dims, c)
		}
	}

	var out []Raw
	for _, row := range resp.Data {
		var (
			region, period string
			extra          []string
		)
		for i, c := range dims {
			if i >= len(row.Key) {
				break
			}
			switch {
			case c.Type == "t":
				period = row.Key[i]
			case strings.EqualFold(c.Code, "Region"):
				region = row.Key[i]
			default:
				extra = append(extra, c.Code+"="+row.Key[i])
			}
		}
		for i, c := range contents {
			if i >= len(row.Values) {
				break
			}
			measure := c.Code
			if len(extra) > 0 {
				measure += "|" + strings.Join(extra, "|")
			}
			out = append(out, Raw{
				Region:       region,
				Period:       period,
				Measure:      measure,
				MeasureLabel: c.Text,
				Value:        row.Values[i],
			})
		}
	}
	return out
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.StatisticValue] {
	if raw.Period == "" || raw.Measure == "" {
		return core.Skip[models.StatisticValue]("cell without period or measure")
	}
	return core.Some(models.StatisticValue{
		TableID:      d.params.Category.ID,
		Region:       raw.Region,
		Period:       raw.Period,
		Measure:      raw.Measure,
		TableLabel:   d.params.Category.Label,
		MeasureLabel: raw.MeasureLabel,
		Value:        models.ParseFloat(raw.Value),
	})
}
