// Package translate lowers feature geometries to drawing entities.
//
// Points become POINT entities, line strings open polylines and every polygon
// ring a closed polyline, exterior first. Multi geometries are lowered part by
// part. Nothing in this package fails: geometries that cannot be drawn are
// reported as diagnostics and skipped.
package translate

import (
	"fmt"

	"github.com/woozymasta/kml2dxf/internal/dxf"
	"github.com/woozymasta/kml2dxf/internal/geo"

	"github.com/twpayne/go-geom"
)

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	// KindUnsupportedGeometry marks a geometry type that has no entity mapping.
	KindUnsupportedGeometry Kind = "unsupported_geometry"
	// KindRingClosed marks a ring that was open in the input and got closed.
	KindRingClosed Kind = "ring_closed"
	// KindDegenerateRing marks a ring with fewer than four coordinates.
	KindDegenerateRing Kind = "degenerate_ring"
	// KindDegenerateLine marks a line string with fewer than two coordinates.
	KindDegenerateLine Kind = "degenerate_line"
)

// Diagnostic is a non fatal notice produced while translating.
type Diagnostic struct {
	Kind Kind `json:"kind"`
	// Feature is the index of the feature in its collection, -1 when the
	// geometry was translated on its own.
	Feature      int    `json:"feature"`
	Name         string `json:"name,omitempty"`
	GeometryType string `json:"geometry_type"`
	Message      string `json:"message"`
}

func (d Diagnostic) String() string {
	msg := fmt.Sprintf("%s: %s", d.Kind, d.Message)
	switch {
	case d.Feature < 0:
		return msg
	case d.Name != "":
		return fmt.Sprintf("feature %d (%s): %s", d.Feature, d.Name, msg)
	default:
		return fmt.Sprintf("feature %d: %s", d.Feature, msg)
	}
}

// Geometry translates a single geometry.
func Geometry(g geom.T) ([]dxf.Entity, []Diagnostic) {
	t := translator{feature: -1}
	t.geometry(g, "")
	return t.entities, t.diagnostics
}

// Collection translates every feature of fc in order. Features without a
// geometry and every skipped multi geometry member produce an unsupported
// geometry diagnostic.
func Collection(fc *geo.FeatureCollection) ([]dxf.Entity, []Diagnostic) {
	var t translator
	for i, f := range fc.Features {
		t.feature, t.name = i, f.Name
		switch {
		case f.Geometry != nil:
			t.geometry(f.Geometry, "")
		case len(f.Skipped) == 0:
			t.unsupported(f.TypeName(), "")
		}
		for _, typeName := range f.Skipped {
			t.unsupported(typeName, "multi geometry member: ")
		}
	}
	return t.entities, t.diagnostics
}

// Count returns how many diagnostics of kind are in diags.
func Count(diags []Diagnostic, kind Kind) int {
	n := 0
	for _, d := range diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

type translator struct {
	entities    []dxf.Entity
	diagnostics []Diagnostic

	feature int
	name    string
}

func (t *translator) report(kind Kind, geometryType, message string) {
	t.diagnostics = append(t.diagnostics, Diagnostic{
		Kind:         kind,
		Feature:      t.feature,
		Name:         t.name,
		GeometryType: geometryType,
		Message:      message,
	})
}

func (t *translator) unsupported(geometryType, where string) {
	t.report(KindUnsupportedGeometry, geometryType, where+"geometry type "+geometryType+" is not supported")
}

// geometry dispatches on the concrete go-geom type. where prefixes messages
// for parts of multi geometries.
func (t *translator) geometry(g geom.T, where string) {
	if isEmpty(g) {
		t.unsupported(geo.TypeEmpty, where)
		return
	}

	switch g := g.(type) {
	case *geom.Point:
		t.point(g.Coords())

	case *geom.LineString:
		t.lineString(g.Coords(), where)

	case *geom.Polygon:
		t.polygon(g, where)

	case *geom.MultiPoint:
		for i := 0; i < g.NumPoints(); i++ {
			p := g.Point(i)
			if isEmpty(p) {
				t.unsupported(geo.TypeEmpty, part(where, i))
				continue
			}
			t.point(p.Coords())
		}

	case *geom.MultiLineString:
		for i := 0; i < g.NumLineStrings(); i++ {
			t.lineString(g.LineString(i).Coords(), part(where, i))
		}

	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			t.polygon(g.Polygon(i), part(where, i))
		}

	default:
		t.unsupported(geo.TypeName(g), where)
	}
}

func (t *translator) point(c geom.Coord) {
	t.entities = append(t.entities, dxf.Point{Vertex: vertex(c)})
}

func (t *translator) lineString(coords []geom.Coord, where string) {
	if len(coords) < 2 {
		t.report(KindDegenerateLine, geo.TypeLineString,
			fmt.Sprintf("%sline string has %d coordinate(s), skipped", where, len(coords)))
		return
	}
	t.entities = append(t.entities, dxf.Polyline{Points: vertices(coords)})
}

// polygon emits the exterior ring followed by the interior rings. A
// degenerate exterior drops the whole polygon.
func (t *translator) polygon(p *geom.Polygon, where string) {
	var rings []dxf.Entity
	for i := 0; i < p.NumLinearRings(); i++ {
		label := fmt.Sprintf("%sinterior ring %d: ", where, i-1)
		if i == 0 {
			label = where + "exterior ring: "
		}

		pl, ok := t.ring(p.LinearRing(i).Coords(), geo.TypePolygon, label)
		if !ok {
			if i == 0 {
				return
			}
			continue
		}
		rings = append(rings, pl)
	}
	t.entities = append(t.entities, rings...)
}

// ring closes coords if needed and returns it as a closed polyline.
func (t *translator) ring(coords []geom.Coord, geometryType, where string) (dxf.Polyline, bool) {
	closed, changed := geo.CloseRing(coords)
	if changed {
		t.report(KindRingClosed, geometryType, where+"ring was not closed, first coordinate appended")
	}
	if len(closed) < geo.MinRingCoords {
		t.report(KindDegenerateRing, geometryType,
			fmt.Sprintf("%sring has %d coordinate(s), need at least %d, skipped", where, len(closed), geo.MinRingCoords))
		return dxf.Polyline{}, false
	}
	return dxf.Polyline{Points: vertices(closed), Closed: true}, true
}

func isEmpty(g geom.T) bool {
	switch g := g.(type) {
	case nil:
		return true
	case *geom.GeometryCollection:
		return g.NumGeoms() == 0
	default:
		return len(g.FlatCoords()) == 0
	}
}

func part(where string, i int) string {
	return fmt.Sprintf("%spart %d: ", where, i)
}

func vertex(c geom.Coord) dxf.Vertex {
	return dxf.Vertex{X: c.X(), Y: c.Y()}
}

func vertices(coords []geom.Coord) []dxf.Vertex {
	out := make([]dxf.Vertex, len(coords))
	for i, c := range coords {
		out[i] = vertex(c)
	}
	return out
}
