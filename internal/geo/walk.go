package geo

import (
	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// Walk calls fn with the flat coordinates of every simple geometry reachable
// from g, descending into geometry collections. fn must not modify flat.
func Walk(g geom.T, fn func(flat []float64, stride int)) {
	switch g := g.(type) {
	case nil:
	case *geom.GeometryCollection:
		for _, child := range g.Geoms() {
			Walk(child, fn)
		}
	default:
		if len(g.FlatCoords()) > 0 {
			fn(g.FlatCoords(), g.Stride())
		}
	}
}

// CloneWith returns a deep copy of g tagged with srid. Every flat coordinate
// sequence is replaced by the output of fn, visited in the same order as Walk.
// fn must return a slice of the same length as its input.
func CloneWith(g geom.T, srid int, fn func(flat []float64, stride int) []float64) (geom.T, error) {
	if g == nil {
		return nil, nil
	}

	if gc, ok := g.(*geom.GeometryCollection); ok {
		out := geom.NewGeometryCollection()
		for _, child := range gc.Geoms() {
			c, err := CloneWith(child, srid, fn)
			if err != nil {
				return nil, err
			}
			if err := out.Push(c); err != nil {
				return nil, errors.Wrap(err, "rebuild geometry collection")
			}
		}
		return out.SetSRID(srid), nil
	}

	flat := g.FlatCoords()
	if len(flat) > 0 {
		next := fn(flat, g.Stride())
		if len(next) != len(flat) {
			return nil, errors.AssertionFailedf("coordinate count changed from %d to %d", len(flat), len(next))
		}
		flat = next
	} else {
		flat = []float64{}
	}

	layout := g.Layout()
	switch g := g.(type) {
	case *geom.Point:
		if len(flat) == 0 {
			return geom.NewPointEmpty(layout).SetSRID(srid), nil
		}
		return geom.NewPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat).SetSRID(srid), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, copyEnds(g.Ends())).SetSRID(srid), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, copyEnds(g.Ends())).SetSRID(srid), nil
	case *geom.MultiPolygon:
		endss := make([][]int, len(g.Endss()))
		for i, ends := range g.Endss() {
			endss[i] = copyEnds(ends)
		}
		return geom.NewMultiPolygonFlat(layout, flat, endss).SetSRID(srid), nil
	default:
		return nil, errors.Newf("cannot copy geometry of type %T", g)
	}
}

func copyEnds(ends []int) []int {
	return append([]int(nil), ends...)
}
