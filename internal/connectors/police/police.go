// Package police ingests published police incident events.
package police

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

const Name = "police"

const (
	DateAll    = "all"
	DateLatest = "latest"
)

// Table stores events append-only with one embedded row per summary sentence.
var Table = &core.Table{
	Name:            "police_events",
	KeyColumns:      []string{"event_id"},
	Columns:         models.PoliceEventColumns,
	Granularity:     core.EmbedPerChunk,
	ChunkTable:      "police_event_chunks",
	ChunkForeignKey: "police_event_id",
	Precheck:        true,
}

// Params selects which events to keep. Day is set only for an explicit date.
type Params struct {
	Mode string
	Day  time.Time
}

// ParseParams validates --date: YYYY-MM-DD, "latest" or "all" (the default).
func ParseParams(date string) (Params, error) {
	switch v := strings.ToLower(strings.TrimSpace(date)); v {
	case "", DateAll:
		return Params{Mode: DateAll}, nil
	case DateLatest:
		return Params{Mode: DateLatest}, nil
	default:
		day, err := connectors.ParseDay("date", v)
		if err != nil {
			return Params{}, &core.ValidationError{Param: "date", Msg: fmt.Sprintf("expected YYYY-MM-DD, latest or all, got %q", date)}
		}
		return Params{Mode: "day", Day: day}, nil
	}
}

// Raw is one event as served by the events API.
type Raw struct {
	ID       int64  `json:"id"`
	Datetime string `json:"datetime"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	Location struct {
		Name string `json:"name"`
		GPS  string `json:"gps"`
	} `json:"location"`
}

type Dataset struct {
	src    config.Source
	client *connectors.Client
	params Params
}

var _ core.Dataset[Raw, models.PoliceEvent] = (*Dataset)(nil)

func New(src config.Source, client *connectors.Client, params Params) *Dataset {
	return &Dataset{src: src, client: client, params: params}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	u, err := url.Parse(d.src.URL)
	if err != nil {
		return nil, fmt.Errorf("police url: %w", err)
	}
	tag := d.params.Mode
	if d.params.Mode == "day" {
		tag = d.params.Day.Format(time.DateOnly)
		q := u.Query()
		q.Set("DateTime", d.params.Day.Format(time.DateOnly))
		u.RawQuery = q.Encode()
	}

	body, err := d.client.Get(connectors.WithArchiveTag(ctx, tag), u.String(), nil)
	if err != nil {
		return nil, err
	}
	var events []Raw
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode police events: %w", err)
	}
	if d.params.Mode == DateLatest {
		events = latestDay(events)
	}
	return events, nil
}

// latestDay keeps the events that share the calendar date of the newest one.
func latestDay(events []Raw) []Raw {
	var newest string
	for _, e := range events {
		if day := dayOf(e.Datetime); day > newest {
			newest = day
		}
	}
	if newest == "" {
		return events
	}
	out := events[:0:0]
	for _, e := range events {
		if dayOf(e.Datetime) == newest {
			out = append(out, e)
		}
	}
	return out
}

func dayOf(datetime string) string {
	if len(datetime) < 10 {
		return ""
	}
	return datetime[:10]
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.PoliceEvent] {
	if raw.ID <= 0 {
		return core.Skip[models.PoliceEvent]("missing event id")
	}
	ev := models.PoliceEvent{
		EventID:      strconv.FormatInt(raw.ID, 10),
		Name:         strings.TrimSpace(raw.Name),
		Summary:      strings.TrimSpace(raw.Summary),
		EventType:    strings.TrimSpace(raw.Type),
		URL:          absoluteURL(d.src.URL, raw.URL),
		LocationName: strings.TrimSpace(raw.Location.Name),
		Location:     models.ParseLatLng(raw.Location.GPS),
		OccurredAt:   connectors.ParseTime(raw.Datetime),
	}
	return core.Some(ev)
}

// absoluteURL resolves the site-relative links the API returns.
func absoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
