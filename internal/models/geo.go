package models

import (
	"strconv"
	"strings"
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Polygon is an ordered ring of coordinates as delivered by the source.
type Polygon []Coordinate

// ParsePolygon reads a whitespace-delimited coordinate list. Consecutive values
// are paired as (longitude, latitude) in input order and an unpaired trailing
// value is dropped. It returns nil if any value is not a number.
func ParsePolygon(s string) Polygon {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return nil
	}
	out := make(Polygon, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		lng, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil
		}
		lat, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil
		}
		out = append(out, Coordinate{Lng: lng, Lat: lat})
	}
	return out
}

// ParseLatLng reads a "lat,lng" string.
func ParseLatLng(s string) *Coordinate {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}
	return &Coordinate{Lng: lng, Lat: lat}
}

// ParseWKTPoint reads a WKT "POINT (lng lat)" geometry.
func ParseWKTPoint(s string) *Coordinate {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToUpper(s), "POINT") {
		return nil
	}
	open := strings.Index(s, "(")
	end := strings.LastIndex(s, ")")
	if open < 0 || end <= open {
		return nil
	}
	p := ParsePolygon(s[open+1 : end])
	if len(p) != 1 {
		return nil
	}
	return &p[0]
}

// ParseFloat coerces a provider string to a float, treating blanks and the
// usual missing-value markers as absent.
func ParseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	switch s {
	case "", ".", "..", "-", "..C":
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &f
}
