package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/woozymasta/kml2dxf/internal/config"
	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/geo"
	"github.com/woozymasta/kml2dxf/internal/reproject"

	"github.com/jessevdk/go-flags"
	"github.com/twpayne/go-geom"
	"gopkg.in/yaml.v3"
)

type Options struct {
	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Configuration file with extra CRS definitions"`
	Output     string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format     string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
	Search     string `short:"s" long:"search" description:"Only list systems whose name contains this text"`
	Projected  bool   `short:"p" long:"projected" description:"Only list projected systems"`
	Verify     bool   `long:"verify" description:"Build a PROJ pipeline from EPSG:4326 for every listed system"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	reg, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building registry: %v\n", err)
		os.Exit(1)
	}

	defs := filter(reg.All(), opts.Search, opts.Projected)

	if opts.Verify {
		failed := verify(reg, defs, os.Stderr)
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d definitions failed\n", failed, len(defs))
			os.Exit(1)
		}
	}

	outputData, err := marshal(defs, opts.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully wrote %d definitions to %s (format: %s)\n", len(defs), opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}

func filter(defs []crs.Definition, search string, projected bool) []crs.Definition {
	search = strings.ToLower(search)
	out := make([]crs.Definition, 0, len(defs))
	for _, d := range defs {
		if projected && d.Geographic {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name), search) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func marshal(defs []crs.Definition, format string) ([]byte, error) {
	if format == "yaml" {
		return yaml.Marshal(defs)
	}
	return json.MarshalIndent(defs, "", "  ")
}

// verify reprojects the origin of every definition's zone from WGS 84 and
// reports failures to w.
func verify(reg *crs.Registry, defs []crs.Definition, w io.Writer) int {
	r := reproject.New(reg)
	failed := 0
	for _, d := range defs {
		fc := &geo.FeatureCollection{
			SRID:     crs.WGS84,
			Features: []geo.Feature{{Geometry: geom.NewPointFlat(geom.XY, probe(d))}},
		}
		if _, err := r.Reproject(fc, d.Code); err != nil {
			fmt.Fprintf(w, "EPSG:%d %s: %v\n", d.Code, d.Name, err)
			failed++
		}
	}
	return failed
}

// probe returns a WGS 84 coordinate inside the area of use of d, the
// central meridian for UTM zones and the origin otherwise.
func probe(d crs.Definition) []float64 {
	var zone int
	if _, err := fmt.Sscanf(param(d, "zone"), "%d", &zone); err == nil && zone > 0 {
		lat := 10.0
		if hasSouth(d) {
			lat = -10
		}
		return []float64{float64(zone*6 - 183), lat}
	}
	var lon0, lat0 float64
	_, _ = fmt.Sscanf(param(d, "lon_0"), "%g", &lon0)
	_, _ = fmt.Sscanf(param(d, "lat_0"), "%g", &lat0)
	if lat0 >= 89 {
		lat0 = 80
	} else if lat0 <= -89 {
		lat0 = -80
	}
	return []float64{lon0, lat0}
}

func param(d crs.Definition, name string) string {
	v, _ := d.Param(name)
	return v
}

func hasSouth(d crs.Definition) bool {
	_, ok := d.Param("south")
	return ok
}
