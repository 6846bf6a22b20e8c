// Package dxf builds drawing-exchange documents and serializes them as
// DXF R2000 (AC1015) text.
package dxf

import "fmt"

// Unit is a drawing unit as stored in the $INSUNITS header variable.
type Unit int

// Units defined by the DXF reference for $INSUNITS.
const (
	UnitUnitless    Unit = 0
	UnitInches      Unit = 1
	UnitFeet        Unit = 2
	UnitMillimeters Unit = 4
	UnitCentimeters Unit = 5
	UnitMeters      Unit = 6
	UnitKilometers  Unit = 7
)

// DocumentUnit is the unit of every document produced by Build. The drawing
// unit and the header variable are both set from it.
const DocumentUnit = UnitMeters

// DefaultLayer is the layer entities are placed on unless configured otherwise.
const DefaultLayer = "0"

func (u Unit) String() string {
	switch u {
	case UnitUnitless:
		return "unitless"
	case UnitInches:
		return "inches"
	case UnitFeet:
		return "feet"
	case UnitMillimeters:
		return "millimeters"
	case UnitCentimeters:
		return "centimeters"
	case UnitMeters:
		return "meters"
	case UnitKilometers:
		return "kilometers"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// Header holds the header variables written to the HEADER section.
type Header struct {
	// InsUnits is the $INSUNITS value.
	InsUnits Unit
	// Measurement is $MEASUREMENT: 0 imperial, 1 metric.
	Measurement int
}

// Document is an ordered list of modelspace entities with its unit settings.
// A document is built for one conversion and is not shared.
type Document struct {
	header   Header
	units    Unit
	layer    string
	entities []Entity
}

// Option configures a Document.
type Option func(*Document)

// WithLayer places all entities on the named layer.
func WithLayer(name string) Option {
	return func(d *Document) {
		if name != "" {
			d.layer = name
		}
	}
}

// New returns an empty document in meters.
func New(opts ...Option) *Document {
	d := &Document{
		units: DocumentUnit,
		header: Header{
			InsUnits:    DocumentUnit,
			Measurement: 1,
		},
		layer: DefaultLayer,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Build returns a document holding entities in the given order.
func Build(entities []Entity, opts ...Option) *Document {
	d := New(opts...)
	d.Add(entities...)
	return d
}

// Add appends entities to modelspace.
func (d *Document) Add(entities ...Entity) {
	d.entities = append(d.entities, entities...)
}

// Units returns the drawing unit.
func (d *Document) Units() Unit { return d.units }

// Header returns the header variables.
func (d *Document) Header() Header { return d.header }

// Layer returns the layer entities are placed on.
func (d *Document) Layer() string { return d.layer }

// Entities returns the modelspace entities in insertion order.
func (d *Document) Entities() []Entity { return d.entities }

// Extents returns the bounding box of the modelspace entities.
func (d *Document) Extents() Extents { return ExtentsOf(d.entities) }

// Stats counts entities by kind.
func (d *Document) Stats() (points, polylines int) {
	for _, e := range d.entities {
		switch e.(type) {
		case Point:
			points++
		case Polyline:
			polylines++
		}
	}
	return points, polylines
}
