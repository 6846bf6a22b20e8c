package reproject

import (
	"testing"

	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/geo"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func sample() *geo.FeatureCollection {
	return &geo.FeatureCollection{
		SRID: crs.WGS84,
		Features: []geo.Feature{
			{Name: "se", Geometry: geom.NewPointFlat(geom.XYZ, []float64{-46.633, -23.55, 760})},
			{Name: "model", Tag: "Model"},
			{Name: "lot", Geometry: geom.NewPolygonFlat(geom.XYZ, []float64{
				-46.64, -23.56, 0, -46.62, -23.56, 0, -46.62, -23.54, 0, -46.64, -23.56, 0,
				-46.635, -23.555, 0, -46.630, -23.555, 0, -46.630, -23.550, 0, -46.635, -23.555, 0,
			}, []int{12, 24})},
			{Name: "trail", Geometry: geom.NewMultiLineStringFlat(geom.XY, []float64{
				-46.6, -23.5, -46.5, -23.4, -46.4, -23.3, -46.3, -23.2,
			}, []int{4, 8})},
		},
	}
}

func TestReprojectWebMercator(t *testing.T) {
	in := geo.FeatureCollection{
		SRID: crs.WGS84,
		Features: []geo.Feature{
			{Geometry: geom.NewPointFlat(geom.XY, []float64{-46.633, -23.55})},
			{Geometry: geom.NewPointFlat(geom.XY, []float64{10, 20})},
		},
	}

	out, err := New(nil).Reproject(&in, 3857)
	require.NoError(t, err)
	require.Equal(t, 3857, out.SRID)

	p0 := out.Features[0].Geometry.FlatCoords()
	require.InDelta(t, -5191161.814, p0[0], 1e-2)
	require.InDelta(t, -2698668.739, p0[1], 1e-2)

	p1 := out.Features[1].Geometry.FlatCoords()
	require.InDelta(t, 1113194.908, p1[0], 1e-2)
	require.InDelta(t, 2273030.927, p1[1], 1e-2)
	require.Equal(t, 3857, out.Features[1].Geometry.SRID())
}

func TestReprojectKeepsTopology(t *testing.T) {
	in := sample()
	var before [][]float64
	for _, g := range in.Geometries() {
		if g != nil {
			before = append(before, copyFlat(g.FlatCoords(), g.Stride()))
		}
	}

	out, err := New(nil).Reproject(in, 32723)
	require.NoError(t, err)
	require.Equal(t, 32723, out.SRID)
	require.Len(t, out.Features, len(in.Features))
	require.Equal(t, in.NumCoords(), out.NumCoords())

	for i, f := range out.Features {
		src := in.Features[i]
		require.Equal(t, src.Name, f.Name)
		require.Equal(t, src.TypeName(), f.TypeName())
		if src.Geometry == nil {
			require.Nil(t, f.Geometry)
			continue
		}
		require.Equal(t, src.Geometry.Layout(), f.Geometry.Layout())
		require.Equal(t, src.Geometry.Ends(), f.Geometry.Ends())
	}

	// UTM 23S puts Sao Paulo around 333 km east, 7395 km north
	p := out.Features[0].Geometry.FlatCoords()
	require.InDelta(t, 333000, p[0], 2000)
	require.InDelta(t, 7395000, p[1], 2000)
	require.Equal(t, 760.0, p[2], "altitude passes through")

	// the input is left untouched
	var after [][]float64
	for _, g := range in.Geometries() {
		if g != nil {
			after = append(after, g.FlatCoords())
		}
	}
	require.Equal(t, before, after)
	require.Equal(t, crs.WGS84, in.SRID)
}

func TestReprojectRoundTrip(t *testing.T) {
	in := sample()
	r := New(nil)

	projected, err := r.Reproject(in, 31983)
	require.NoError(t, err)
	back, err := r.Reproject(projected, crs.WGS84)
	require.NoError(t, err)

	for i, f := range back.Features {
		if f.Geometry == nil {
			continue
		}
		want := in.Features[i].Geometry.FlatCoords()
		got := f.Geometry.FlatCoords()
		require.Len(t, got, len(want))
		for j := range want {
			require.InDelta(t, want[j], got[j], 1e-9)
		}
	}
}

func TestReprojectSameCRS(t *testing.T) {
	in := sample()
	out, err := New(nil).Reproject(in, crs.WGS84)
	require.NoError(t, err)
	for i, f := range out.Features {
		if f.Geometry == nil {
			continue
		}
		require.Equal(t, in.Features[i].Geometry.FlatCoords(), f.Geometry.FlatCoords())
	}
}

func TestReprojectEmptyCollection(t *testing.T) {
	out, err := New(nil).Reproject(&geo.FeatureCollection{SRID: crs.WGS84}, 3857)
	require.NoError(t, err)
	require.Equal(t, 3857, out.SRID)
	require.Empty(t, out.Features)
}

func TestReprojectErrors(t *testing.T) {
	r := New(nil)

	for _, code := range []int{0, -1, 999999} {
		out, err := r.Reproject(sample(), code)
		require.Error(t, err)
		require.Nil(t, out)
		require.True(t, errors.Is(err, ErrReprojection), "code %d: %v", code, err)
	}

	_, err := r.Reproject(&geo.FeatureCollection{SRID: 12345}, 3857)
	require.True(t, errors.Is(err, ErrReprojection))
	require.True(t, errors.Is(err, crs.ErrUnknownCode))
}

func TestReprojectPipelineFailure(t *testing.T) {
	reg := crs.NewRegistry()
	require.NoError(t, reg.Register(
		crs.Definition{Code: crs.WGS84, Name: "WGS 84", Proj: "+proj=longlat +ellps=WGS84", Geographic: true},
		crs.Definition{Code: 900001, Name: "broken", Proj: "+proj=nonexistent +units=m"},
	))

	_, err := New(reg).Reproject(sample(), 900001)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrReprojection))
}

func TestReprojectOutOfDomain(t *testing.T) {
	// the pole has no image in Mercator
	in := &geo.FeatureCollection{
		SRID:     crs.WGS84,
		Features: []geo.Feature{{Geometry: geom.NewPointFlat(geom.XY, []float64{0, 90})}},
	}
	_, err := New(nil).Reproject(in, 3395)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrReprojection))
}
