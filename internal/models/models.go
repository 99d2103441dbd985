package models

import (
	"encoding/json"
	"strings"
	"time"
)

// KeySeparator joins the parts of a composite natural key.
const KeySeparator = "\x1f"

// NaturalKey is the ordered tuple of key column values identifying a record
// within its dataset.
type NaturalKey []string

func (k NaturalKey) String() string {
	return strings.Join(k, KeySeparator)
}

// PoliceEvent is one published police incident.
type PoliceEvent struct {
	EventID      string      `json:"event_id"`
	OccurredAt   *time.Time  `json:"occurred_at,omitempty"`
	Name         string      `json:"name"`
	Summary      string      `json:"summary"`
	EventType    string      `json:"event_type"`
	URL          string      `json:"url"`
	LocationName string      `json:"location_name"`
	Location     *Coordinate `json:"location,omitempty"`
}

var PoliceEventColumns = []string{"occurred_at", "name", "summary", "event_type", "url", "location_name", "latitude", "longitude"}

func (e PoliceEvent) NaturalKey() NaturalKey { return NaturalKey{e.EventID} }
func (e PoliceEvent) EmbeddableText() string { return e.Summary }
func (e PoliceEvent) Values() []any {
	lat, lng := latLng(e.Location)
	return []any{e.OccurredAt, e.Name, e.Summary, e.EventType, e.URL, e.LocationName, lat, lng}
}

// BuildingEntry is one cadastral registry entry within a category feed.
type BuildingEntry struct {
	EntryID       string     `json:"entry_id"`
	CategoryID    string     `json:"category_id"`
	CategoryLabel string     `json:"category_label"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	SourceUpdated *time.Time `json:"source_updated,omitempty"`
	Polygon       Polygon    `json:"polygon,omitempty"`
}

var BuildingEntryColumns = []string{"category_label", "title", "summary", "source_updated_at", "polygon"}

func (b BuildingEntry) NaturalKey() NaturalKey { return NaturalKey{b.EntryID, b.CategoryID} }
func (b BuildingEntry) EmbeddableText() string {
	return joinSentences(b.Title, b.Summary)
}
func (b BuildingEntry) Values() []any {
	var polygon any
	if len(b.Polygon) > 0 {
		raw, _ := json.Marshal(b.Polygon)
		polygon = string(raw)
	}
	return []any{b.CategoryLabel, b.Title, b.Summary, b.SourceUpdated, polygon}
}

// StatisticValue is one cell of a statistics table.
type StatisticValue struct {
	TableID      string   `json:"table_id"`
	Region       string   `json:"region"`
	Period       string   `json:"period"`
	Measure      string   `json:"measure"`
	TableLabel   string   `json:"table_label"`
	MeasureLabel string   `json:"measure_label"`
	Value        *float64 `json:"value"`
}

var StatisticValueColumns = []string{"table_label", "measure_label", "value"}

func (s StatisticValue) NaturalKey() NaturalKey {
	return NaturalKey{s.TableID, s.Region, s.Period, s.Measure}
}
func (s StatisticValue) EmbeddableText() string {
	return joinText(", ", s.TableLabel, s.MeasureLabel, labelled("region", s.Region), s.Period)
}
func (s StatisticValue) Values() []any {
	return []any{s.TableLabel, s.MeasureLabel, s.Value}
}

// SchoolUnit is one entry of the school-unit registry.
type SchoolUnit struct {
	Code             string      `json:"school_unit_code"`
	Name             string      `json:"name"`
	MunicipalityCode string      `json:"municipality_code"`
	Status           string      `json:"status"`
	SchoolTypes      []string    `json:"school_types"`
	Location         *Coordinate `json:"location,omitempty"`
}

var SchoolUnitColumns = []string{"name", "municipality_code", "status", "school_types", "latitude", "longitude"}

func (s SchoolUnit) NaturalKey() NaturalKey { return NaturalKey{s.Code} }
func (s SchoolUnit) EmbeddableText() string {
	return joinText(", ", s.Name, strings.Join(s.SchoolTypes, ", "), labelled("kommun", s.MunicipalityCode))
}
func (s SchoolUnit) Values() []any {
	lat, lng := latLng(s.Location)
	return []any{s.Name, s.MunicipalityCode, s.Status, strings.Join(s.SchoolTypes, ","), lat, lng}
}

// MonetaryObservation is one dated value of a central-bank series.
type MonetaryObservation struct {
	SeriesID string   `json:"series_id"`
	Date     string   `json:"observation_date"`
	Label    string   `json:"label"`
	Value    *float64 `json:"value"`
}

var MonetaryObservationColumns = []string{"label", "value"}

func (m MonetaryObservation) NaturalKey() NaturalKey { return NaturalKey{m.SeriesID, m.Date} }
func (m MonetaryObservation) EmbeddableText() string { return m.Label }
func (m MonetaryObservation) Values() []any {
	return []any{m.Label, m.Value}
}

// TrafficSituation is one road-traffic deviation.
type TrafficSituation struct {
	DeviationID        string      `json:"deviation_id"`
	SituationID        string      `json:"situation_id"`
	MessageType        string      `json:"message_type"`
	Header             string      `json:"header"`
	Message            string      `json:"message"`
	Severity           string      `json:"severity"`
	LocationDescriptor string      `json:"location_descriptor"`
	StartTime          *time.Time  `json:"start_time,omitempty"`
	EndTime            *time.Time  `json:"end_time,omitempty"`
	Location           *Coordinate `json:"location,omitempty"`
}

var TrafficSituationColumns = []string{"situation_id", "message_type", "header", "message", "severity", "location_descriptor", "start_time", "end_time", "latitude", "longitude"}

func (t TrafficSituation) NaturalKey() NaturalKey { return NaturalKey{t.DeviationID} }
func (t TrafficSituation) EmbeddableText() string {
	return joinSentences(t.Header, t.Message, t.LocationDescriptor)
}
func (t TrafficSituation) Values() []any {
	lat, lng := latLng(t.Location)
	return []any{t.SituationID, t.MessageType, t.Header, t.Message, t.Severity, t.LocationDescriptor, t.StartTime, t.EndTime, lat, lng}
}

func latLng(c *Coordinate) (any, any) {
	if c == nil {
		return nil, nil
	}
	return c.Lat, c.Lng
}

func labelled(label, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return label + " " + v
}

func joinText(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// joinSentences terminates every non-empty part with a period unless it
// already ends a sentence, so the chunker sees one sentence per part.
func joinSentences(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p[len(p)-1:], ".!?") {
			p += "."
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, " ")
}
