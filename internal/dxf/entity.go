package dxf

import "math"

// Vertex is a 2D drawing coordinate.
type Vertex struct {
	X, Y float64
}

// Entity is a drawing primitive placed in modelspace. The set of
// implementations is closed: Point and Polyline.
type Entity interface {
	entity()
	// Vertices returns the coordinates of the entity in drawing order.
	Vertices() []Vertex
}

// Point is a single POINT entity.
type Point struct {
	Vertex
}

// Polyline is an LWPOLYLINE entity. A closed polyline keeps its vertices as
// given; the closing segment is implied by the flag.
type Polyline struct {
	Points []Vertex
	Closed bool
}

func (Point) entity()    {}
func (Polyline) entity() {}

// Vertices implements Entity.
func (p Point) Vertices() []Vertex { return []Vertex{p.Vertex} }

// Vertices implements Entity.
func (p Polyline) Vertices() []Vertex { return p.Points }

// Extents is an axis aligned bounding box.
type Extents struct {
	Min, Max Vertex
}

// Empty reports whether no vertex has been added.
func (e Extents) Empty() bool {
	return e.Min.X > e.Max.X || e.Min.Y > e.Max.Y
}

// Width returns the horizontal size of the box.
func (e Extents) Width() float64 { return e.Max.X - e.Min.X }

// Height returns the vertical size of the box.
func (e Extents) Height() float64 { return e.Max.Y - e.Min.Y }

// ExtentsOf returns the bounding box of all entity vertices.
func ExtentsOf(entities []Entity) Extents {
	e := Extents{
		Min: Vertex{math.Inf(1), math.Inf(1)},
		Max: Vertex{math.Inf(-1), math.Inf(-1)},
	}
	for _, ent := range entities {
		for _, v := range ent.Vertices() {
			e.Min.X = math.Min(e.Min.X, v.X)
			e.Min.Y = math.Min(e.Min.Y, v.Y)
			e.Max.X = math.Max(e.Max.X, v.X)
			e.Max.Y = math.Max(e.Max.Y, v.Y)
		}
	}
	return e
}
