// Package preview renders drawing entities to a WebP thumbnail so a
// conversion can be checked without a CAD viewer.
package preview

import (
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/woozymasta/kml2dxf/internal/dxf"

	"github.com/chai2010/webp"
	"github.com/cockroachdb/errors"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// supersample is the factor the drawing is rasterized at before it is scaled
// down to the requested size.
const supersample = 2

// Options controls rendering and encoding.
type Options struct {
	Background color.Color
	Stroke     color.Color
	Marker     color.Color
	// Size is the edge of the square output in pixels.
	Size int
	// Margin is kept free on every side, in output pixels.
	Margin    int
	LineWidth float32
	PointSize float32
	Quality   float32
	Lossless  bool
}

// DefaultOptions returns a 512 px preview with dark lines on white.
func DefaultOptions() Options {
	return Options{
		Background: color.White,
		Stroke:     color.RGBA{R: 0x1f, G: 0x3a, B: 0x5f, A: 0xff},
		Marker:     color.RGBA{R: 0xc0, G: 0x39, B: 0x2b, A: 0xff},
		Size:       512,
		Margin:     16,
		LineWidth:  1.5,
		PointSize:  5,
		Quality:    85,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Background == nil {
		o.Background = def.Background
	}
	if o.Stroke == nil {
		o.Stroke = def.Stroke
	}
	if o.Marker == nil {
		o.Marker = def.Marker
	}
	if o.Size <= 0 {
		o.Size = def.Size
	}
	if o.Margin < 0 || 2*o.Margin >= o.Size {
		o.Margin = 0
	}
	if o.LineWidth <= 0 {
		o.LineWidth = def.LineWidth
	}
	if o.PointSize <= 0 {
		o.PointSize = def.PointSize
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = def.Quality
	}
	return o
}

// transform maps drawing coordinates to canvas pixels, Y pointing up.
type transform struct {
	minX, minY float64
	scale      float64
	offX, offY float64
	size       float64
}

func newTransform(ext dxf.Extents, size, margin int) transform {
	t := transform{size: float64(size), scale: 1}
	if ext.Empty() {
		return t
	}

	usable := float64(size - 2*margin)
	span := math.Max(ext.Width(), ext.Height())
	if span > 0 {
		t.scale = usable / span
	}
	t.minX, t.minY = ext.Min.X, ext.Min.Y
	t.offX = float64(margin) + (usable-ext.Width()*t.scale)/2
	t.offY = float64(margin) + (usable-ext.Height()*t.scale)/2
	return t
}

func (t transform) apply(v dxf.Vertex) (float32, float32) {
	x := t.offX + (v.X-t.minX)*t.scale
	y := t.size - (t.offY + (v.Y-t.minY)*t.scale)
	return float32(x), float32(y)
}

// Render draws the entities scaled to fit a square canvas.
func Render(entities []dxf.Entity, opts Options) *image.RGBA {
	opts = opts.withDefaults()

	size := opts.Size * supersample
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	t := newTransform(dxf.ExtentsOf(entities), size, opts.Margin*supersample)
	lines := vector.NewRasterizer(size, size)
	markers := vector.NewRasterizer(size, size)
	lineWidth := opts.LineWidth * supersample
	pointSize := opts.PointSize * supersample

	for _, e := range entities {
		switch e := e.(type) {
		case dxf.Point:
			x, y := t.apply(e.Vertex)
			square(markers, x, y, pointSize)
		case dxf.Polyline:
			pts := e.Points
			for i := 1; i < len(pts); i++ {
				segment(lines, t, pts[i-1], pts[i], lineWidth)
			}
			if e.Closed && len(pts) > 2 {
				segment(lines, t, pts[len(pts)-1], pts[0], lineWidth)
			}
		}
	}

	lines.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Stroke), image.Point{})
	markers.Draw(canvas, canvas.Bounds(), image.NewUniform(opts.Marker), image.Point{})

	out := image.NewRGBA(image.Rect(0, 0, opts.Size, opts.Size))
	xdraw.CatmullRom.Scale(out, out.Bounds(), canvas, canvas.Bounds(), draw.Src, nil)
	return out
}

// segment adds the quad covering a stroked line from a to b.
func segment(r *vector.Rasterizer, t transform, a, b dxf.Vertex, width float32) {
	ax, ay := t.apply(a)
	bx, by := t.apply(b)
	dx, dy := bx-ax, by-ay
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	r.MoveTo(ax+nx, ay+ny)
	r.LineTo(bx+nx, by+ny)
	r.LineTo(bx-nx, by-ny)
	r.LineTo(ax-nx, ay-ny)
	r.ClosePath()
}

func square(r *vector.Rasterizer, x, y, size float32) {
	h := size / 2
	r.MoveTo(x-h, y-h)
	r.LineTo(x+h, y-h)
	r.LineTo(x+h, y+h)
	r.LineTo(x-h, y+h)
	r.ClosePath()
}

// Encode writes img as WebP.
func Encode(w io.Writer, img image.Image, opts Options) error {
	opts = opts.withDefaults()
	if err := webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: opts.Quality}); err != nil {
		return errors.Wrap(err, "encode webp")
	}
	return nil
}

// Write renders the entities and encodes the result as WebP.
func Write(w io.Writer, entities []dxf.Entity, opts Options) error {
	return Encode(w, Render(entities, opts), opts)
}
