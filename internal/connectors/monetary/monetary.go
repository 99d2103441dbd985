// Package monetary ingests central-bank interest rate series, one provider
// call per series.
package monetary

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

const Name = "monetary"

// DefaultWindow is the look-back used when no date range is given.
const DefaultWindow = 30 * 24 * time.Hour

var Table = &core.Table{
	Name:       "monetary_observations",
	KeyColumns: []string{"series_id", "observation_date"},
	Columns:    models.MonetaryObservationColumns,
}

type Params struct {
	From time.Time
	To   time.Time
}

// ParseParams validates --dateFrom/--dateTo. Both or neither must be set;
// neither means the DefaultWindow ending today.
func ParseParams(from, to string, now time.Time) (Params, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	switch {
	case from == "" && to == "":
		end := now.UTC().Truncate(24 * time.Hour)
		return Params{From: end.Add(-DefaultWindow), To: end}, nil
	case from == "":
		return Params{}, &core.ValidationError{Param: "dateFrom", Msg: "required together with --dateTo"}
	case to == "":
		return Params{}, &core.ValidationError{Param: "dateTo", Msg: "required together with --dateFrom"}
	}

	f, err := connectors.ParseDay("dateFrom", from)
	if err != nil {
		return Params{}, err
	}
	t, err := connectors.ParseDay("dateTo", to)
	if err != nil {
		return Params{}, err
	}
	if t.Before(f) {
		return Params{}, &core.ValidationError{Param: "dateTo", Msg: "must not be before --dateFrom"}
	}
	return Params{From: f, To: t}, nil
}

type observation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Raw is one observation tagged with its series.
type Raw struct {
	SeriesID string
	Label    string
	Date     string
	Value    *float64
}

type Dataset struct {
	src    config.Source
	client *connectors.Client
	params Params
}

var _ core.Dataset[Raw, models.MonetaryObservation] = (*Dataset)(nil)

// New expects client to be built with connectors.WithCallDelay(src.CallDelay()).
func New(src config.Source, client *connectors.Client, params Params) *Dataset {
	return &Dataset{src: src, client: client, params: params}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

// Fetch calls the provider once per configured series, in catalog order. The
// first failing call aborts the fetch.
func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	var out []Raw
	for _, s := range d.src.Series {
		url := fmt.Sprintf("%s/%s/%s/%s",
			strings.TrimRight(d.src.URL, "/"), s.ID,
			d.params.From.Format(time.DateOnly), d.params.To.Format(time.DateOnly),
		)
		body, err := d.client.Get(connectors.WithArchiveTag(ctx, s.ID), url, nil)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.ID, err)
		}
		var obs []observation
		if err := json.Unmarshal(body, &obs); err != nil {
			return nil, fmt.Errorf("decode series %s: %w", s.ID, err)
		}
		for _, o := range obs {
			out = append(out, Raw{SeriesID: s.ID, Label: s.Label, Date: o.Date, Value: o.Value})
		}
	}
	return out, nil
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.MonetaryObservation] {
	day := connectors.ParseTime(raw.Date)
	if day == nil {
		return core.Skip[models.MonetaryObservation](fmt.Sprintf("series %s: bad date %q", raw.SeriesID, raw.Date))
	}
	return core.Some(models.MonetaryObservation{
		SeriesID: raw.SeriesID,
		Date:     day.Format(time.DateOnly),
		Label:    raw.Label,
		Value:    raw.Value,
	})
}
