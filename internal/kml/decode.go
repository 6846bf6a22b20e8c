// Package kml decodes KML documents into feature collections.
//
// Every Placemark found anywhere below the root element becomes one feature,
// in document order. Geometries are decoded with an XYZ layout; a missing
// altitude is stored as zero.
package kml

import (
	"bytes"
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/geo"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/charmap"
)

// ErrMalformed is returned when the input cannot be decoded as KML.
var ErrMalformed = errors.New("malformed KML")

// node is a generic XML element used to walk documents without a fixed schema.
type node struct {
	XMLName xml.Name
	Content string `xml:",chardata"`
	Nodes   []node `xml:",any"`
}

func (n *node) child(name string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *node) text(name string) string {
	if c := n.child(name); c != nil {
		return strings.TrimSpace(c.Content)
	}
	return ""
}

// Elements that describe a geometry but are not decoded into one.
var unsupportedGeometries = map[string]bool{
	"Model":      true,
	"Track":      true,
	"MultiTrack": true,
}

// Decode reads a KML document. The result is tagged with EPSG:4326, the only
// reference system KML allows.
func Decode(r io.Reader) (*geo.FeatureCollection, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var root node
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Wrap(ErrMalformed, "empty document")
		}
		return nil, errors.Wrapf(ErrMalformed, "parse XML: %v", err)
	}
	if root.XMLName.Local != "kml" {
		return nil, errors.Wrapf(ErrMalformed, "root element is <%s>, expected <kml>", root.XMLName.Local)
	}

	fc := &geo.FeatureCollection{SRID: crs.WGS84}
	if err := collectPlacemarks(&root, fc); err != nil {
		return nil, err
	}

	return fc, nil
}

// DecodeBytes is a convenience wrapper around Decode.
func DecodeBytes(data []byte) (*geo.FeatureCollection, error) {
	return Decode(bytes.NewReader(data))
}

func collectPlacemarks(n *node, fc *geo.FeatureCollection) error {
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.XMLName.Local != "Placemark" {
			if err := collectPlacemarks(child, fc); err != nil {
				return err
			}
			continue
		}

		f, err := decodePlacemark(child)
		if err != nil {
			name := child.text("name")
			return errors.Wrapf(err, "placemark %d (%q)", len(fc.Features), name)
		}
		fc.Features = append(fc.Features, f)
	}
	return nil
}

func decodePlacemark(n *node) (geo.Feature, error) {
	f := geo.Feature{
		Name:        n.text("name"),
		Description: n.text("description"),
	}

	for i := range n.Nodes {
		child := &n.Nodes[i]
		tag := child.XMLName.Local
		if !isGeometry(tag) {
			continue
		}

		f.Tag = tag
		var g geom.T
		var err error
		if tag == "MultiGeometry" {
			g, err = decodeMultiGeometry(child, &f.Skipped)
		} else {
			g, err = decodeGeometry(child)
		}
		if err != nil {
			return f, err
		}
		if g == nil && !unsupportedGeometries[tag] && len(f.Skipped) == 0 {
			f.Tag = geo.TypeEmpty
		}
		f.Geometry = g
		break
	}

	return f, nil
}

func isGeometry(tag string) bool {
	switch tag {
	case "Point", "LineString", "LinearRing", "Polygon", "MultiGeometry":
		return true
	}
	return unsupportedGeometries[tag]
}

// decodeGeometry returns nil for geometries that carry no coordinates or
// that the converter does not support.
func decodeGeometry(n *node) (geom.T, error) {
	switch n.XMLName.Local {
	case "Point":
		coords, err := parseCoordinates(n.text("coordinates"))
		if err != nil || len(coords) == 0 {
			return nil, err
		}
		return geom.NewPointFlat(geom.XYZ, coords[0]), nil

	case "LineString", "LinearRing":
		coords, err := parseCoordinates(n.text("coordinates"))
		if err != nil || len(coords) == 0 {
			return nil, err
		}
		return geom.NewLineString(geom.XYZ).MustSetCoords(coords), nil

	case "Polygon":
		return decodePolygon(n)
	}

	return nil, nil
}

func decodePolygon(n *node) (geom.T, error) {
	var rings [][]geom.Coord

	outer := n.child("outerBoundaryIs")
	if outer == nil {
		return nil, nil
	}
	exterior, err := ringCoordinates(outer)
	if err != nil || len(exterior) == 0 {
		return nil, err
	}
	rings = append(rings, exterior)

	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local != "innerBoundaryIs" {
			continue
		}
		interior, err := ringCoordinates(&n.Nodes[i])
		if err != nil {
			return nil, err
		}
		if len(interior) > 0 {
			rings = append(rings, interior)
		}
	}

	return geom.NewPolygon(geom.XYZ).MustSetCoords(rings), nil
}

func ringCoordinates(boundary *node) ([]geom.Coord, error) {
	ring := boundary.child("LinearRing")
	if ring == nil {
		return nil, nil
	}
	return parseCoordinates(ring.text("coordinates"))
}

// decodeMultiGeometry flattens nested MultiGeometry elements. Homogeneous
// members become the matching multi geometry, anything else a
// GeometryCollection. Members that decode to nothing are appended to skipped
// by type name.
func decodeMultiGeometry(n *node, skipped *[]string) (geom.T, error) {
	var parts []geom.T
	if err := flattenMulti(n, &parts, skipped); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, nil
	}

	switch parts[0].(type) {
	case *geom.Point:
		mp := geom.NewMultiPoint(geom.XYZ)
		for _, p := range parts {
			pt, ok := p.(*geom.Point)
			if !ok {
				return collection(parts)
			}
			if err := mp.Push(pt); err != nil {
				return nil, errors.Wrap(ErrMalformed, err.Error())
			}
		}
		return mp, nil

	case *geom.LineString:
		mls := geom.NewMultiLineString(geom.XYZ)
		for _, p := range parts {
			ls, ok := p.(*geom.LineString)
			if !ok {
				return collection(parts)
			}
			if err := mls.Push(ls); err != nil {
				return nil, errors.Wrap(ErrMalformed, err.Error())
			}
		}
		return mls, nil

	case *geom.Polygon:
		mp := geom.NewMultiPolygon(geom.XYZ)
		for _, p := range parts {
			poly, ok := p.(*geom.Polygon)
			if !ok {
				return collection(parts)
			}
			if err := mp.Push(poly); err != nil {
				return nil, errors.Wrap(ErrMalformed, err.Error())
			}
		}
		return mp, nil
	}

	return collection(parts)
}

func flattenMulti(n *node, parts *[]geom.T, skipped *[]string) error {
	for i := range n.Nodes {
		child := &n.Nodes[i]
		tag := child.XMLName.Local
		switch {
		case tag == "MultiGeometry":
			if err := flattenMulti(child, parts, skipped); err != nil {
				return err
			}
			continue
		case unsupportedGeometries[tag]:
			*skipped = append(*skipped, tag)
			continue
		case !isGeometry(tag):
			continue
		}

		g, err := decodeGeometry(child)
		if err != nil {
			return err
		}
		if g == nil {
			*skipped = append(*skipped, geo.TypeEmpty)
			continue
		}
		*parts = append(*parts, g)
	}
	return nil
}

func collection(parts []geom.T) (geom.T, error) {
	gc := geom.NewGeometryCollection()
	if err := gc.Push(parts...); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	return gc, nil
}

// parseCoordinates parses a KML coordinates string: whitespace separated
// tuples of lon,lat[,alt].
func parseCoordinates(s string) ([]geom.Coord, error) {
	fields := strings.Fields(s)
	coords := make([]geom.Coord, 0, len(fields))

	for _, tuple := range fields {
		parts := strings.Split(strings.Trim(tuple, ","), ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errors.Wrapf(ErrMalformed, "coordinate tuple %q", tuple)
		}

		c := geom.Coord{0, 0, 0}
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, errors.Wrapf(ErrMalformed, "coordinate tuple %q: %v", tuple, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(ErrMalformed, "coordinate tuple %q: non-finite value", tuple)
			}
			c[i] = v
		}
		coords = append(coords, c)
	}

	return coords, nil
}

// charsetReader decodes the single byte encodings found in KML exported by
// older desktop tools.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, errors.Newf("unsupported charset %q", charset)
}
