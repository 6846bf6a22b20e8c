package geo

import "github.com/twpayne/go-geom"

// MinRingCoords is the smallest number of coordinates a closed ring can have:
// three distinct points plus the closing point.
const MinRingCoords = 4

// RingClosed reports whether the first and last XY coordinates of a ring are equal.
func RingClosed(coords []geom.Coord) bool {
	if len(coords) < 2 {
		return false
	}
	first, last := coords[0], coords[len(coords)-1]
	return first.X() == last.X() && first.Y() == last.Y()
}

// CloseRing returns coords with the first coordinate appended when the ring
// is open, and whether anything was appended.
func CloseRing(coords []geom.Coord) ([]geom.Coord, bool) {
	if len(coords) == 0 || RingClosed(coords) {
		return coords, false
	}
	closed := make([]geom.Coord, len(coords), len(coords)+1)
	copy(closed, coords)
	return append(closed, coords[0]), true
}
