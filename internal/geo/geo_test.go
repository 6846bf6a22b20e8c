package geo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func shift(dx, dy float64) func(flat []float64, stride int) []float64 {
	return func(flat []float64, stride int) []float64 {
		out := make([]float64, len(flat))
		copy(out, flat)
		for i := 0; i < len(out); i += stride {
			out[i] += dx
			out[i+1] += dy
		}
		return out
	}
}

func TestCloneWith(t *testing.T) {
	testCases := []struct {
		desc     string
		input    geom.T
		expected geom.T
	}{
		{
			desc:     "point",
			input:    geom.NewPointFlat(geom.XY, []float64{1, 2}),
			expected: geom.NewPointFlat(geom.XY, []float64{11, 22}).SetSRID(3857),
		},
		{
			desc:     "point with altitude keeps z",
			input:    geom.NewPointFlat(geom.XYZ, []float64{1, 2, 300}),
			expected: geom.NewPointFlat(geom.XYZ, []float64{11, 22, 300}).SetSRID(3857),
		},
		{
			desc:     "line string",
			input:    geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
			expected: geom.NewLineStringFlat(geom.XY, []float64{10, 20, 11, 21}).SetSRID(3857),
		},
		{
			desc:     "polygon with hole",
			input:    geom.NewPolygonFlat(geom.XY, []float64{0, 0, 4, 0, 4, 4, 0, 0, 1, 1, 2, 1, 2, 2, 1, 1}, []int{8, 16}),
			expected: geom.NewPolygonFlat(geom.XY, []float64{10, 20, 14, 20, 14, 24, 10, 20, 11, 21, 12, 21, 12, 22, 11, 21}, []int{8, 16}).SetSRID(3857),
		},
		{
			desc:     "multi point",
			input:    geom.NewMultiPointFlat(geom.XY, []float64{1, 1, 2, 2}),
			expected: geom.NewMultiPointFlat(geom.XY, []float64{11, 21, 12, 22}).SetSRID(3857),
		},
		{
			desc:     "multi line string",
			input:    geom.NewMultiLineStringFlat(geom.XY, []float64{0, 0, 1, 1, 2, 2, 3, 3}, []int{4, 8}),
			expected: geom.NewMultiLineStringFlat(geom.XY, []float64{10, 20, 11, 21, 12, 22, 13, 23}, []int{4, 8}).SetSRID(3857),
		},
		{
			desc:     "multi polygon",
			input:    geom.NewMultiPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0, 5, 5, 6, 5, 6, 6, 5, 5}, [][]int{{8}, {16}}),
			expected: geom.NewMultiPolygonFlat(geom.XY, []float64{10, 20, 11, 20, 11, 21, 10, 20, 15, 25, 16, 25, 16, 26, 15, 25}, [][]int{{8}, {16}}).SetSRID(3857),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			before := append([]float64(nil), tc.input.FlatCoords()...)

			got, err := CloneWith(tc.input, 3857, shift(10, 20))
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
			require.Equal(t, 3857, got.SRID())

			// the input is never modified
			require.Equal(t, before, tc.input.FlatCoords())
		})
	}
}

func TestCloneWithCollection(t *testing.T) {
	gc := geom.NewGeometryCollection().MustPush(
		geom.NewPointFlat(geom.XY, []float64{1, 1}),
		geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1}),
	)

	var visited int
	Walk(gc, func(flat []float64, stride int) { visited += len(flat) / stride })
	require.Equal(t, 3, visited)

	got, err := CloneWith(gc, 4326, shift(1, 1))
	require.NoError(t, err)

	out, ok := got.(*geom.GeometryCollection)
	require.True(t, ok)
	require.Equal(t, 2, out.NumGeoms())
	require.Equal(t, []float64{2, 2}, out.Geom(0).FlatCoords())
	require.Equal(t, []float64{1, 1, 2, 2}, out.Geom(1).FlatCoords())
}

func TestCloneWithRejectsLengthChange(t *testing.T) {
	_, err := CloneWith(geom.NewPointFlat(geom.XY, []float64{1, 2}), 0,
		func(flat []float64, stride int) []float64 { return flat[:1] })
	require.Error(t, err)
}

func TestCloneWithNil(t *testing.T) {
	got, err := CloneWith(nil, 4326, shift(1, 1))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTypeName(t *testing.T) {
	testCases := []struct {
		input geom.T
		want  string
	}{
		{geom.NewPoint(geom.XY), TypePoint},
		{geom.NewLineString(geom.XY), TypeLineString},
		{geom.NewPolygon(geom.XY), TypePolygon},
		{geom.NewMultiPoint(geom.XY), TypeMultiPoint},
		{geom.NewMultiLineString(geom.XY), TypeMultiLineString},
		{geom.NewMultiPolygon(geom.XY), TypeMultiPolygon},
		{geom.NewGeometryCollection(), TypeGeometryCollection},
		{nil, TypeEmpty},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			require.Equal(t, tc.want, TypeName(tc.input))
		})
	}

	require.Equal(t, "Model", Feature{Tag: "Model"}.TypeName())
	require.Equal(t, TypeEmpty, Feature{}.TypeName())
	require.Equal(t, TypePoint, Feature{Geometry: geom.NewPoint(geom.XY), Tag: "Point"}.TypeName())
}

func TestCloseRing(t *testing.T) {
	closedRing := []geom.Coord{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	got, changed := CloseRing(closedRing)
	require.False(t, changed)
	require.Equal(t, closedRing, got)
	require.True(t, RingClosed(closedRing))

	open := []geom.Coord{{0, 0, 5}, {1, 0, 5}, {1, 1, 5}}
	got, changed = CloseRing(open)
	require.True(t, changed)
	require.Equal(t, []geom.Coord{{0, 0, 5}, {1, 0, 5}, {1, 1, 5}, {0, 0, 5}}, got)
	require.Len(t, open, 3)

	// Z does not take part in closure
	require.True(t, RingClosed([]geom.Coord{{0, 0, 1}, {1, 1, 1}, {0, 0, 2}}))

	got, changed = CloseRing(nil)
	require.False(t, changed)
	require.Empty(t, got)
}

func TestNumCoords(t *testing.T) {
	fc := &FeatureCollection{
		SRID: 4326,
		Features: []Feature{
			{Geometry: geom.NewPointFlat(geom.XYZ, []float64{1, 2, 0})},
			{Tag: "Model"},
			{Geometry: geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8})},
		},
	}
	require.Equal(t, 5, fc.NumCoords())
	require.Len(t, fc.Geometries(), 3)
	require.Nil(t, fc.Geometries()[1])
}

func TestMarshalGeoJSON(t *testing.T) {
	fc := &FeatureCollection{
		SRID: 4326,
		Features: []Feature{
			{Name: "well", Geometry: geom.NewPointFlat(geom.XY, []float64{-46.6, -23.5})},
			{Name: "no geometry", Tag: "Model"},
			{Name: "road", Description: "gravel", Geometry: geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})},
		},
	}

	data, err := fc.MarshalGeoJSON()
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 2)
	require.Equal(t, "Point", decoded.Features[0].Geometry.Type)
	require.Equal(t, "well", decoded.Features[0].Properties["name"])
	require.Equal(t, "LineString", decoded.Features[1].Geometry.Type)
	require.Equal(t, "gravel", decoded.Features[1].Properties["description"])
}
