package models

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// GeoJSONPoint represents a GeoJSON Point. Coordinates are [longitude, latitude].
type GeoJSONPoint struct {
	Type        string    `json:"type" validate:"required,eq=Point"`
	Coordinates []float64 `json:"coordinates" validate:"required,len=2"`
}

func NewGeoJSONPoint(lat, lon float64) GeoJSONPoint {
	return GeoJSONPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (g GeoJSONPoint) Lon() float64 {
	if len(g.Coordinates) != 2 {
		return 0
	}
	return g.Coordinates[0]
}

func (g GeoJSONPoint) Lat() float64 {
	if len(g.Coordinates) != 2 {
		return 0
	}
	return g.Coordinates[1]
}

// Orb converts to an orb.Point for distance math.
func (g GeoJSONPoint) Orb() orb.Point {
	return orb.Point{g.Lon(), g.Lat()}
}

// Scan implements the sql.Scanner interface for GeoJSONPoint.
// Expects EWKB, i.e. columns selected with ST_AsEWKB(location::geometry).
func (g *GeoJSONPoint) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan GeoJSONPoint: expected []byte, got %T", value)
	}

	geometry, err := ewkb.Unmarshal(bytes)
	if err != nil {
		return fmt.Errorf("failed to unmarshal EWKB: %w", err)
	}

	point, ok := geometry.(*geom.Point)
	if !ok {
		return fmt.Errorf("scanned geometry is not a Point")
	}

	geoJSONBytes, err := geojson.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to marshal to GeoJSON: %w", err)
	}

	return json.Unmarshal(geoJSONBytes, g)
}
