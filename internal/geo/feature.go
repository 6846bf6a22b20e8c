// Package geo holds the feature model shared by the conversion stages.
package geo

import (
	"github.com/twpayne/go-geom"
)

// Geometry type names used in diagnostics.
const (
	TypePoint              = "Point"
	TypeLineString         = "LineString"
	TypePolygon            = "Polygon"
	TypeMultiPoint         = "MultiPoint"
	TypeMultiLineString    = "MultiLineString"
	TypeMultiPolygon       = "MultiPolygon"
	TypeGeometryCollection = "GeometryCollection"
	TypeEmpty              = "Empty"
)

// Feature is a single placemark read from the source file.
type Feature struct {
	// Geometry is nil when the placemark has no geometry the decoder
	// understands; Tag then names the source element.
	Geometry    geom.T
	Name        string
	Description string
	Tag         string
	// Skipped lists the type names of multi geometry members that were
	// dropped while decoding, in document order.
	Skipped []string
}

// TypeName returns the geometry type name, falling back to Tag for features
// without a decoded geometry.
func (f Feature) TypeName() string {
	if f.Geometry == nil {
		if f.Tag != "" {
			return f.Tag
		}
		return TypeEmpty
	}
	return TypeName(f.Geometry)
}

// FeatureCollection is an ordered list of features sharing one SRID.
type FeatureCollection struct {
	Features []Feature
	SRID     int
}

// Geometries returns the geometries of all features in order, nil entries included.
func (fc *FeatureCollection) Geometries() []geom.T {
	out := make([]geom.T, len(fc.Features))
	for i, f := range fc.Features {
		out[i] = f.Geometry
	}
	return out
}

// NumCoords counts every coordinate reachable from the collection.
func (fc *FeatureCollection) NumCoords() int {
	n := 0
	for _, f := range fc.Features {
		Walk(f.Geometry, func(flat []float64, stride int) {
			n += len(flat) / stride
		})
	}
	return n
}

// TypeName returns the OGC name of a go-geom geometry.
func TypeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return TypePoint
	case *geom.LineString:
		return TypeLineString
	case *geom.Polygon:
		return TypePolygon
	case *geom.MultiPoint:
		return TypeMultiPoint
	case *geom.MultiLineString:
		return TypeMultiLineString
	case *geom.MultiPolygon:
		return TypeMultiPolygon
	case *geom.GeometryCollection:
		return TypeGeometryCollection
	case nil:
		return TypeEmpty
	default:
		return "Unknown"
	}
}
