// Package schools ingests the national school-unit registry.
package schools

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

const Name = "schools"

var Table = &core.Table{
	Name:       "school_units",
	KeyColumns: []string{"school_unit_code"},
	Columns:    models.SchoolUnitColumns,
}

type registry struct {
	Units []Raw `json:"Skolenheter"`
}

// Raw is one registry entry.
type Raw struct {
	Code             string   `json:"Skolenhetskod"`
	Name             string   `json:"Skolenhetsnamn"`
	MunicipalityCode string   `json:"Kommunkod"`
	Status           string   `json:"Status"`
	SchoolTypes      []string `json:"Skolformer"`
	Coordinates      struct {
		Lat string `json:"Lat"`
		Lng string `json:"Lng"`
	} `json:"Koordinater"`
}

type Dataset struct {
	src    config.Source
	client *connectors.Client
}

var _ core.Dataset[Raw, models.SchoolUnit] = (*Dataset)(nil)

func New(src config.Source, client *connectors.Client) *Dataset {
	return &Dataset{src: src, client: client}
}

func (d *Dataset) Name() string        { return Name }
func (d *Dataset) Table() *core.Table  { return Table }
func (d *Dataset) Pace() time.Duration { return d.src.Pace() }

func (d *Dataset) Fetch(ctx context.Context) ([]Raw, error) {
	body, err := d.client.Get(ctx, d.src.URL, nil)
	if err != nil {
		return nil, err
	}
	var reg registry
	if err := json.Unmarshal(body, &reg); err != nil {
		return nil, fmt.Errorf("decode school registry: %w", err)
	}
	return reg.Units, nil
}

func (d *Dataset) Normalize(raw Raw) core.Normalized[models.SchoolUnit] {
	code := strings.TrimSpace(raw.Code)
	if code == "" {
		return core.Skip[models.SchoolUnit]("missing school unit code")
	}

	var types []string
	for _, t := range raw.SchoolTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	unit := models.SchoolUnit{
		Code:             code,
		Name:             strings.TrimSpace(raw.Name),
		MunicipalityCode: strings.TrimSpace(raw.MunicipalityCode),
		Status:           strings.TrimSpace(raw.Status),
		SchoolTypes:      types,
	}
	lat, lng := models.ParseFloat(raw.Coordinates.Lat), models.ParseFloat(raw.Coordinates.Lng)
	if lat != nil && lng != nil {
		unit.Location = &models.Coordinate{Lat: *lat, Lng: *lng}
	}
	return core.Some(unit)
}
