// Package reproject transforms feature collections between coordinate
// reference systems with PROJ.
package reproject

import (
	"math"

	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/geo"

	"github.com/cockroachdb/errors"
	"github.com/pebbe/proj/v5"
	"github.com/rs/zerolog/log"
)

// ErrReprojection is the mark carried by every reprojection failure.
var ErrReprojection = errors.New("reprojection failed")

// Reprojector resolves codes against a registry and runs PROJ pipelines.
// It holds no PROJ state between calls and is safe for concurrent use.
type Reprojector struct {
	registry *crs.Registry
}

// New returns a reprojector using reg, or the default registry when reg is nil.
func New(reg *crs.Registry) *Reprojector {
	if reg == nil {
		reg = crs.Default()
	}
	return &Reprojector{registry: reg}
}

// Registry returns the registry codes are resolved against.
func (r *Reprojector) Registry() *crs.Registry {
	return r.registry
}

// Reproject returns a copy of fc with every coordinate transformed to target.
// Either every coordinate is transformed or an error marked with
// ErrReprojection is returned; fc itself is never modified.
func (r *Reprojector) Reproject(fc *geo.FeatureCollection, target int) (*geo.FeatureCollection, error) {
	src, err := r.registry.Lookup(fc.SRID)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "source CRS"), ErrReprojection)
	}
	dst, err := r.registry.Lookup(target)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "target CRS"), ErrReprojection)
	}

	if src.Code == dst.Code {
		return copyCollection(fc, target, copyFlat)
	}

	// gather every XY pair in walk order
	var xs, ys []float64
	for _, f := range fc.Features {
		geo.Walk(f.Geometry, func(flat []float64, stride int) {
			for i := 0; i < len(flat); i += stride {
				xs = append(xs, flat[i])
				ys = append(ys, flat[i+1])
			}
		})
	}

	if len(xs) == 0 {
		return copyCollection(fc, target, copyFlat)
	}

	definition := crs.Pipeline(src, dst)
	log.Debug().
		Int("source", src.Code).
		Int("target", dst.Code).
		Int("coords", len(xs)).
		Str("pipeline", definition).
		Msg("reprojecting")

	outX, outY, err := transform(definition, xs, ys)
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "EPSG:%d to EPSG:%d", src.Code, dst.Code), ErrReprojection)
	}

	for i := range outX {
		if !finite(outX[i]) || !finite(outY[i]) {
			return nil, errors.Mark(
				errors.Newf("coordinate (%g, %g) has no image in EPSG:%d", xs[i], ys[i], dst.Code),
				ErrReprojection)
		}
	}

	next := 0
	return copyCollection(fc, target, func(flat []float64, stride int) []float64 {
		out := append([]float64(nil), flat...)
		for i := 0; i < len(out); i += stride {
			out[i], out[i+1] = outX[next], outY[next]
			next++
		}
		return out
	})
}

// transform runs one PROJ pipeline over all coordinates using a context
// private to this call.
func transform(definition string, xs, ys []float64) ([]float64, []float64, error) {
	ctx := proj.NewContext()
	defer ctx.Close()

	pj, err := ctx.Create(definition)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create PROJ pipeline")
	}
	defer pj.Close()

	outX, outY, _, _, err := pj.TransSlice(proj.Fwd, xs, ys, nil, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "transform coordinates")
	}
	if len(outX) != len(xs) || len(outY) != len(ys) {
		return nil, nil, errors.AssertionFailedf("PROJ returned %d/%d coordinates for %d", len(outX), len(outY), len(xs))
	}
	return outX, outY, nil
}

func copyCollection(fc *geo.FeatureCollection, srid int, fn func(flat []float64, stride int) []float64) (*geo.FeatureCollection, error) {
	out := &geo.FeatureCollection{
		SRID:     srid,
		Features: make([]geo.Feature, len(fc.Features)),
	}
	for i, f := range fc.Features {
		g, err := geo.CloneWith(f.Geometry, srid, fn)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "feature %d", i), ErrReprojection)
		}
		f.Geometry = g
		out.Features[i] = f
	}
	return out, nil
}

func copyFlat(flat []float64, _ int) []float64 {
	return append([]float64(nil), flat...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
