package crs

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryLookup(t *testing.T) {
	r := Default()

	testCases := []struct {
		code       int
		name       string
		proj       string
		geographic bool
	}{
		{code: 4326, name: "WGS 84", proj: "+proj=longlat +ellps=WGS84", geographic: true},
		{code: 31983, name: "SIRGAS 2000 / UTM zone 23S", proj: "+proj=utm +zone=23 +south +ellps=GRS80 +units=m"},
		{code: 31965, name: "SIRGAS 2000 / UTM zone 11N", proj: "+proj=utm +zone=11 +ellps=GRS80 +units=m"},
		{code: 32601, name: "WGS 84 / UTM zone 1N", proj: "+proj=utm +zone=1 +ellps=WGS84 +units=m"},
		{code: 32760, name: "WGS 84 / UTM zone 60S", proj: "+proj=utm +zone=60 +south +ellps=WGS84 +units=m"},
		{code: 25832, name: "ETRS89 / UTM zone 32N", proj: "+proj=utm +zone=32 +ellps=GRS80 +units=m"},
		{code: 26918, name: "NAD83 / UTM zone 18N", proj: "+proj=utm +zone=18 +ellps=GRS80 +units=m"},
		{code: 28355, name: "GDA94 / MGA zone 55", proj: "+proj=utm +zone=55 +south +ellps=GRS80 +units=m"},
		{code: 3857, name: "WGS 84 / Pseudo-Mercator", proj: "+proj=webmerc +ellps=WGS84 +units=m"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := r.Lookup(tc.code)
			require.NoError(t, err)
			require.Equal(t, tc.code, d.Code)
			require.Equal(t, tc.name, d.Name)
			require.Equal(t, tc.proj, d.Proj)
			require.Equal(t, tc.geographic, d.Geographic)
			require.Equal(t, !tc.geographic, d.Metric())
		})
	}
}

func TestLookupErrors(t *testing.T) {
	r := Default()

	_, err := r.Lookup(0)
	require.True(t, errors.Is(err, ErrInvalidCode))

	_, err = r.Lookup(-4326)
	require.True(t, errors.Is(err, ErrInvalidCode))

	_, err = r.Lookup(999999)
	require.True(t, errors.Is(err, ErrUnknownCode))
	require.Contains(t, err.Error(), "EPSG:999999")
	require.NotEmpty(t, errors.GetAllHints(err))
}

func TestParseCode(t *testing.T) {
	testCases := []struct {
		input string
		want  int
		ok    bool
	}{
		{input: "31983", want: 31983, ok: true},
		{input: " 4326 ", want: 4326, ok: true},
		{input: "EPSG:3857", want: 3857, ok: true},
		{input: "epsg:32723", want: 32723, ok: true},
		{input: "", ok: false},
		{input: "EPSG:", ok: false},
		{input: "0", ok: false},
		{input: "-4326", ok: false},
		{input: "43.26", ok: false},
		{input: "abc", ok: false},
		{input: "99999999999999999999999", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCode(tc.input)
			if !tc.ok {
				require.Error(t, err)
				require.True(t, errors.Is(err, ErrInvalidCode))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, 0, r.Len())

	err := r.Register(Definition{Code: 5641, Name: "SIRGAS 2000 / Brazil Mercator",
		Proj: "+proj=merc +lon_0=-43 +lat_ts=-2 +x_0=5000000 +y_0=10000000 +ellps=GRS80 +units=m"})
	require.NoError(t, err)

	d, err := r.Lookup(5641)
	require.NoError(t, err)
	require.True(t, d.Metric())

	require.Error(t, r.Register(Definition{Code: 0, Proj: "+proj=merc"}))
	require.Error(t, r.Register(Definition{Code: 1, Proj: "+ellps=GRS80"}))
	require.Equal(t, 1, r.Len())
}

func TestLoadYAML(t *testing.T) {
	r := NewRegistry()
	err := r.LoadYAML([]byte(`
- code: 102100
  name: custom web mercator
  proj: +proj=webmerc +ellps=WGS84
- code: 7777
  name: feet grid
  proj: +proj=tmerc +lon_0=-100 +ellps=GRS80 +units=us-ft
`))
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	all := r.All()
	require.Equal(t, 7777, all[0].Code)
	require.False(t, all[0].Metric())
	require.Equal(t, 102100, all[1].Code)

	require.Error(t, r.LoadYAML([]byte("code: [")))
}

func TestAllIsSorted(t *testing.T) {
	all := Default().All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].Code, all[i].Code)
	}
}

func TestPipeline(t *testing.T) {
	r := Default()
	wgs, err := r.Lookup(4326)
	require.NoError(t, err)
	utm, err := r.Lookup(31983)
	require.NoError(t, err)
	sirgas, err := r.Lookup(4674)
	require.NoError(t, err)

	require.Equal(t,
		"+proj=pipeline +step +proj=unitconvert +xy_in=deg +xy_out=rad +step +proj=utm +zone=23 +south +ellps=GRS80 +units=m",
		Pipeline(wgs, utm))
	require.Equal(t,
		"+proj=pipeline +step +inv +proj=utm +zone=23 +south +ellps=GRS80 +units=m +step +proj=unitconvert +xy_in=rad +xy_out=deg",
		Pipeline(utm, wgs))
	require.Equal(t,
		"+proj=pipeline +step +proj=unitconvert +xy_in=deg +xy_out=rad +step +proj=unitconvert +xy_in=rad +xy_out=deg",
		Pipeline(wgs, sirgas))

	custom := Definition{Code: 1, Proj: "+proj=merc +ellps=WGS84 +no_defs +type=crs"}
	require.Equal(t,
		"+proj=pipeline +step +proj=unitconvert +xy_in=deg +xy_out=rad +step +proj=merc +ellps=WGS84",
		Pipeline(wgs, custom))
}
