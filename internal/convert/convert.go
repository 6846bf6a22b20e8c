// Package convert runs the KML to DXF pipeline: decode, reproject, translate
// and build the drawing.
package convert

import (
	"io"

	"github.com/woozymasta/kml2dxf/internal/crs"
	"github.com/woozymasta/kml2dxf/internal/dxf"
	"github.com/woozymasta/kml2dxf/internal/geo"
	"github.com/woozymasta/kml2dxf/internal/kml"
	"github.com/woozymasta/kml2dxf/internal/reproject"
	"github.com/woozymasta/kml2dxf/internal/translate"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrInvalidTargetCRS marks a target identifier that is not a positive
	// integer or is not registered.
	ErrInvalidTargetCRS = errors.New("invalid target CRS")
	// ErrReprojection marks failures to transform the collection.
	ErrReprojection = errors.New("reprojection failed")
	// ErrMalformedSource marks input that cannot be decoded as KML.
	ErrMalformedSource = errors.New("malformed source file")
)

// Error kinds reported by Kind.
const (
	KindInvalidTargetCRS = "invalid_target_crs"
	KindMalformedSource  = "malformed_source"
	KindReprojection     = "reprojection"
	KindInternal         = "internal"
)

// Kind classifies an error returned by Convert.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTargetCRS):
		return KindInvalidTargetCRS
	case errors.Is(err, ErrMalformedSource):
		return KindMalformedSource
	case errors.Is(err, ErrReprojection):
		return KindReprojection
	default:
		return KindInternal
	}
}

// Reprojector transforms a collection to the CRS identified by target.
type Reprojector interface {
	Reproject(fc *geo.FeatureCollection, target int) (*geo.FeatureCollection, error)
}

// Converter holds the registry and collaborators shared by conversions. It
// keeps no per-conversion state and can be used concurrently.
type Converter struct {
	registry    *crs.Registry
	reprojector Reprojector
	layer       string
}

// Option configures a Converter.
type Option func(*Converter)

// WithLayer places the drawing entities on the named layer.
func WithLayer(name string) Option {
	return func(c *Converter) { c.layer = name }
}

// WithReprojector replaces the PROJ backed reprojector.
func WithReprojector(r Reprojector) Option {
	return func(c *Converter) { c.reprojector = r }
}

// New returns a converter resolving codes against reg, or the default
// registry when reg is nil.
func New(reg *crs.Registry, opts ...Option) *Converter {
	if reg == nil {
		reg = crs.Default()
	}
	c := &Converter{registry: reg, layer: dxf.DefaultLayer}
	for _, opt := range opts {
		opt(c)
	}
	if c.reprojector == nil {
		c.reprojector = reproject.New(reg)
	}
	return c
}

// Registry returns the registry target codes are resolved against.
func (c *Converter) Registry() *crs.Registry {
	return c.registry
}

// Result is the outcome of a successful conversion.
type Result struct {
	Document *dxf.Document
	// Collection is the reprojected feature collection the document was
	// built from.
	Collection  *geo.FeatureCollection
	Target      crs.Definition
	Diagnostics []translate.Diagnostic
	SourceSRID  int
	Features    int
}

// Unsupported returns the number of unsupported geometry diagnostics.
func (r *Result) Unsupported() int {
	return translate.Count(r.Diagnostics, translate.KindUnsupportedGeometry)
}

// Target resolves a target identifier such as "31983" or "EPSG:31983".
func (c *Converter) Target(code string) (crs.Definition, error) {
	n, err := crs.ParseCode(code)
	if err != nil {
		return crs.Definition{}, errors.Mark(err, ErrInvalidTargetCRS)
	}
	return c.lookupTarget(n)
}

func (c *Converter) lookupTarget(code int) (crs.Definition, error) {
	def, err := c.registry.Lookup(code)
	if err != nil {
		// an unregistered target has no transform path either
		return crs.Definition{}, errors.Mark(errors.Mark(err, ErrInvalidTargetCRS), ErrReprojection)
	}
	return def, nil
}

// ConvertCode is Convert with a textual target identifier.
func (c *Converter) ConvertCode(r io.Reader, code string) (*Result, error) {
	def, err := c.Target(code)
	if err != nil {
		return nil, err
	}
	return c.Convert(r, def.Code)
}

// Convert reads a KML document from r and converts it to a drawing in the
// target CRS. The target is validated before the source is read. No document
// is returned when any stage fails.
func (c *Converter) Convert(r io.Reader, target int) (*Result, error) {
	def, err := c.lookupTarget(target)
	if err != nil {
		return nil, err
	}

	src, err := kml.Decode(r)
	if err != nil {
		return nil, errors.Mark(err, ErrMalformedSource)
	}
	log.Debug().
		Int("features", len(src.Features)).
		Int("coords", src.NumCoords()).
		Int("srid", src.SRID).
		Msg("source decoded")

	projected, err := c.reprojector.Reproject(src, def.Code)
	if err != nil {
		return nil, errors.Mark(err, ErrReprojection)
	}
	if projected.SRID != def.Code {
		return nil, errors.Mark(
			errors.AssertionFailedf("reprojected collection has SRID %d, want %d", projected.SRID, def.Code),
			ErrReprojection)
	}
	if !def.Metric() {
		log.Debug().Int("target", def.Code).Msg("target CRS is not metric, drawing units stay meters")
	}

	entities, diags := translate.Collection(projected)
	doc := dxf.Build(entities, dxf.WithLayer(c.layer))

	points, polylines := doc.Stats()
	log.Debug().
		Int("target", def.Code).
		Int("points", points).
		Int("polylines", polylines).
		Int("diagnostics", len(diags)).
		Msg("drawing built")

	return &Result{
		Document:    doc,
		Collection:  projected,
		Target:      def,
		Diagnostics: diags,
		SourceSRID:  src.SRID,
		Features:    len(src.Features),
	}, nil
}
