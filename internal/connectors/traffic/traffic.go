// Package traffic ingests road-traffic situations. The provider takes an
// XML query carrying the API key and answers in JSON.
package traffic

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/markdave123-py/bostadsdata/internal/config"
	"github.com/markdave123-py/bostadsdata/internal/connectors"
	"github.com/markdave123-py/bostadsdata/internal/core"
	"github.com/markdave123-py/bostadsdata/internal/models"
)

const Name = "traffic"

const (
	objectType    = "Situation"
	schemaVersion = "1.5"
	resultLimit   = 10000
)

var Table = &core.Table{
	Name:       "traffic_situations",
	KeyColumns: []string{"deviation_id"},
	Columns:    models.TrafficSituationColumns,
	Precheck:   true,
}

// Params holds the optional message-type filter and the API key.
type Params struct {
	MessageType string
	APIKey      string
}

// ParseParams resolves the optional --category. An empty category selects
// every message type.
func ParseParams(src config.Source, category, apiKey string) (Params, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Params{}, &core.ValidationError{Msg: "TRAFIKVERKET_API_KEY not set"}
	}
	p := Params{APIKey: apiKey}
	if strings.TrimSpace(category) == "" {
		return p, nil
	}
	cat, err := src.Category(category)
	if err != nil {
		return Params{}, &core.ValidationError{Param: "category", Msg: err.Error()}
	}
	p.MessageType = cat.ID
	return p, nil
}

type request struct {
	XMLName xml.Name `xml:"REQUEST"`
	Login   struct {
		Key string `xml:"authenticationkey,attr"`
	} `xml:"LOGIN"`
	Query struct {
		ObjectType    string  `xml:"objecttype,attr"`
		SchemaVersion string  `xml:"schemaversion,attr"`
		Limit         int     `xml:"limit,attr"`
		Filter        *filter `xml:"FILTER,omitempty"`
	} `xml:"QUERY"`
}

type filter struct {
	EQ struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"EQ"`
}

// buildRequest renders the query body. Values are attribute-escaped by the
// encoder.
func buildRequest(p Params) ([]byte, error) {
	var r request
	r.Login.Key = p.APIKey
	r.Query.ObjectType = objectType
	r.Query.SchemaVersion = schemaVersion
	r.Query.Limit = resultLimit
	if p.MessageType != "" {
		f := &filter{}
		f.EQ.Name = "Deviation.MessageType"
		f.EQ.Value = p.MessageType
		r.Query.Filter = f
	}
	return xml.Marshal(r)
}

type response struct {
	Response struct {
		Result []struct {
			Situation []situation `json:"Situation"`
			Error     *struct {
				Source  string `json:"SOURCE"`
				Message string `json:"MESSAGE"`
			} `json:"ERROR"`
		} `json:"RESULT"`
	} `json:"RESPONSE"`
}

type situation struct {
	ID        string      `json:"Id"`
	Deviation []deviation `json:"Deviation"`
}

type deviation struct {
	ID                 string `json:"Id"`
	Header             string `json:"Header"`
	Message            string `json:"Message"`
	MessageType        string `json:"MessageType"`
	SeverityText       string `json:"SeverityText"`
	LocationDescriptor string `json:"LocationDescriptor"`
	StartTime          string `json:"StartTime"`
	EndTime            string `json:"EndTime"`
	Geometry           struct {
		WGS84 string `json:"WGS84"`
	} `json:"Geometry"`
}

// Raw is one deviation tagged with its situation id.
type Raw struct {
	SituationID string
	deviation
}

type Dataset struct {
	src    config.Source
	client *connectors.Client
	params Params
}

var _ core.Dataset[Raw, models.TrafficSituation] = (*Dataset)(nil)

func New(src config.Source, client *connectors.Client, params Params) *Dataset {
	return &Dataset{src: src, client: client, params: params}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	payload, err := buildRequest(d.params)
	if err != nil {
		return nil, fmt.Errorf("build traffic request: %w", err)
	}
	body, err := d.client.Post(connectors.WithArchiveTag(ctx, d.params.MessageType), d.src.URL, "text/xml", payload, nil)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode traffic response: %w", err)
	}
	var out []Raw
	for _, res := range resp.Response.Result {
		if res.Error != nil {
			return nil, fmt.Errorf("traffic api error from %s: %s", res.Error.Source, res.Error.Message)
		}
		for _, s := range res.Situation {
			for _, dev := range s.Deviation {
				out = append(out, Raw{SituationID: s.ID, deviation: dev})
			}
		}
	}
	return out, nil
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.TrafficSituation] {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return core.Skip[models.TrafficSituation]("missing deviation id")
	}
	return core.Some(models.TrafficSituation{
		DeviationID:        id,
		SituationID:        strings.TrimSpace(raw.SituationID),
		MessageType:        strings.TrimSpace(raw.MessageType),
		Header:             strings.TrimSpace(raw.Header),
		Message:            strings.TrimSpace(raw.Message),
		Severity:           strings.TrimSpace(raw.SeverityText),
		LocationDescriptor: strings.TrimSpace(raw.LocationDescriptor),
		StartTime:          connectors.ParseTime(raw.StartTime),
		EndTime:            connectors.ParseTime(raw.EndTime),
		Location:           models.ParseWKTPoint(raw.Geometry.WGS84),
	})
}
