package graphicsstate

import (
	"image"
	"math"

	"github.com/tsawler/pdfcore/model"
)

// FillRule decides which points are inside a path.
type FillRule int

const (
	NonZero FillRule = iota
	EvenOdd
)

func (r FillRule) String() string {
	if r == EvenOdd {
		return "EvenOdd"
	}
	return "NonZero"
}

// Paint says how a path is painted. Fill and Stroke combine; a path ended
// with n has neither.
type Paint int

const (
	PaintFill Paint = 1 << iota
	PaintStroke
)

// Fills reports whether the interior is painted.
func (p Paint) Fills() bool { return p&PaintFill != 0 }

// Strokes reports whether the outline is painted.
func (p Paint) Strokes() bool { return p&PaintStroke != 0 }

func (p Paint) String() string {
	switch {
	case p.Fills() && p.Strokes():
		return "FillStroke"
	case p.Fills():
		return "Fill"
	case p.Strokes():
		return "Stroke"
	}
	return "None"
}

// flattenTolerance is in device pixels.
const flattenTolerance = 0.25

// Rasterize renders a painted path into a width x height alpha buffer.
// The path is in user space; state.CTM maps it to page space and toPixel
// maps page space to the buffer, whose row 0 is at the top. Each pixel
// center is tested against the fill rule (fill) and against half the
// transformed line width (stroke); coverage is then scaled by the
// constant alpha, the soft mask and the clip box of state.
func Rasterize(path *Path, rule FillRule, paint Paint, state GraphicsState, width, height int, toPixel model.Matrix) *image.Alpha {
	img := image.NewAlpha(image.Rect(0, 0, width, height))
	if path == nil || width <= 0 || height <= 0 || (!paint.Fills() && !paint.Strokes()) {
		return img
	}
	toDevice := state.CTM.Multiply(toPixel)
	subs := path.Transform(toDevice).Flatten(flattenTolerance)
	if len(subs) == 0 {
		return img
	}

	half := 0.0
	if paint.Strokes() {
		half = state.LineWidth * toDevice.ScaleFactor() / 2
		// zero-width lines paint the thinnest line the device can show
		if half < 0.5 {
			half = 0.5
		}
	}

	x0, y0, x1, y1 := deviceBounds(subs, half, width, height)
	if state.Clipped {
		c := toPixel.TransformBBox(state.Clip)
		x0 = max(x0, int(math.Floor(c.Left())))
		y0 = max(y0, int(math.Floor(c.Bottom())))
		x1 = min(x1, int(math.Ceil(c.Right())))
		y1 = min(y1, int(math.Ceil(c.Top())))
	}

	fromPixel, _ := toPixel.Invert()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			pt := model.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
			if state.Clipped && !state.Clip.Contains(fromPixel.Transform(pt)) {
				continue
			}
			a := 0.0
			if paint.Fills() && inside(subs, pt, rule) {
				a = state.FillAlpha
			}
			if paint.Strokes() && a < state.StrokeAlpha && nearOutline(subs, pt, half) {
				a = state.StrokeAlpha
			}
			if a == 0 {
				continue
			}
			if state.SoftMask != nil {
				a *= state.SoftMask.Sample(pt, toPixel)
			}
			img.Pix[y*img.Stride+x] = uint8(math.Round(clamp01(a) * 255))
		}
	}
	return img
}

// deviceBounds returns the pixel rectangle [x0,x1) x [y0,y1) covered by the
// subpaths, grown by pad and clamped to the buffer.
func deviceBounds(subs []Subpath, pad float64, width, height int) (x0, y0, x1, y1 int) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, sp := range subs {
		for _, p := range sp.Points {
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	x0 = max(0, int(math.Floor(minX-pad)))
	y0 = max(0, int(math.Floor(minY-pad)))
	x1 = min(width, int(math.Ceil(maxX+pad))+1)
	y1 = min(height, int(math.Ceil(maxY+pad))+1)
	return
}

// inside tests pt against the subpaths, each implicitly closed, with the
// given fill rule.
func inside(subs []Subpath, pt model.Point, rule FillRule) bool {
	winding := 0
	crossings := 0
	for _, sp := range subs {
		n := len(sp.Points)
		for i := 0; i < n; i++ {
			a, b := sp.Points[i], sp.Points[(i+1)%n]
			if a.Y <= pt.Y {
				if b.Y > pt.Y && cross(a, b, pt) > 0 {
					winding++
					crossings++
				}
			} else if b.Y <= pt.Y && cross(a, b, pt) < 0 {
				winding--
				crossings++
			}
		}
	}
	if rule == EvenOdd {
		return crossings%2 == 1
	}
	return winding != 0
}

// cross is positive when pt lies left of the directed edge a->b.
func cross(a, b, pt model.Point) float64 {
	return (b.X-a.X)*(pt.Y-a.Y) - (pt.X-a.X)*(b.Y-a.Y)
}

// nearOutline reports whether pt is within half of any stroked segment.
// Open subpaths are not closed; closed ones include the closing edge.
func nearOutline(subs []Subpath, pt model.Point, half float64) bool {
	for _, sp := range subs {
		n := len(sp.Points)
		last := n - 1
		if sp.Closed {
			last = n
		}
		for i := 0; i < last; i++ {
			if segmentDistance(pt, sp.Points[i], sp.Points[(i+1)%n]) <= half {
				return true
			}
		}
	}
	return false
}

func segmentDistance(p, a, b model.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Distance(model.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
