package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfcore/model"
)

// PathSegmentType defines the type of path segment
type PathSegmentType int

const (
	// PathMoveTo starts a new subpath
	PathMoveTo PathSegmentType = iota
	// PathLineTo draws a line to a point
	PathLineTo
	// PathCurveTo draws a cubic Bézier curve
	PathCurveTo
	// PathClosePath closes the current subpath
	PathClosePath
)

func (t PathSegmentType) String() string {
	switch t {
	case PathMoveTo:
		return "m"
	case PathLineTo:
		return "l"
	case PathCurveTo:
		return "c"
	case PathClosePath:
		return "h"
	}
	return "?"
}

// PathSegment represents a single segment of a path
type PathSegment struct {
	Type PathSegmentType

	// For MoveTo and LineTo: single point
	// For CurveTo: control point 1, control point 2, end point
	Points []model.Point
}

// Path represents a graphics path being constructed, in user space.
type Path struct {
	Segments []PathSegment

	CurrentPoint    model.Point
	SubpathStart    model.Point
	HasCurrentPoint bool
}

// NewPath creates a new empty path
func NewPath() *Path {
	return &Path{}
}

// MoveTo starts a new subpath at the specified point (m operator)
func (p *Path) MoveTo(x, y float64) {
	pt := model.Point{X: x, Y: y}
	// consecutive moves collapse into the last one
	if n := len(p.Segments); n > 0 && p.Segments[n-1].Type == PathMoveTo {
		p.Segments[n-1].Points = []model.Point{pt}
	} else {
		p.Segments = append(p.Segments, PathSegment{Type: PathMoveTo, Points: []model.Point{pt}})
	}
	p.CurrentPoint = pt
	p.SubpathStart = pt
	p.HasCurrentPoint = true
}

// LineTo appends a line segment from current point to (x, y) (l operator)
func (p *Path) LineTo(x, y float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x, y)
		return
	}
	pt := model.Point{X: x, Y: y}
	p.Segments = append(p.Segments, PathSegment{Type: PathLineTo, Points: []model.Point{pt}})
	p.CurrentPoint = pt
}

// CurveTo appends a cubic Bézier curve (c operator)
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		p.MoveTo(x1, y1)
	}
	p.Segments = append(p.Segments, PathSegment{
		Type:   PathCurveTo,
		Points: []model.Point{{X: x1, Y: y1}, {X: x2, Y: y2}, {X: x3, Y: y3}},
	})
	p.CurrentPoint = model.Point{X: x3, Y: y3}
}

// CurveToV appends a curve whose first control point is the current point (v operator)
func (p *Path) CurveToV(x2, y2, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(p.CurrentPoint.X, p.CurrentPoint.Y, x2, y2, x3, y3)
}

// CurveToY appends a curve whose second control point is the end point (y operator)
func (p *Path) CurveToY(x1, y1, x3, y3 float64) {
	if !p.HasCurrentPoint {
		return
	}
	p.CurveTo(x1, y1, x3, y3, x3, y3)
}

// ClosePath closes the current subpath (h operator)
func (p *Path) ClosePath() {
	if !p.HasCurrentPoint {
		return
	}
	p.Segments = append(p.Segments, PathSegment{Type: PathClosePath})
	p.CurrentPoint = p.SubpathStart
}

// Rectangle appends a rectangle as a complete subpath (re operator)
func (p *Path) Rectangle(x, y, width, height float64) {
	p.MoveTo(x, y)
	p.LineTo(x+width, y)
	p.LineTo(x+width, y+height)
	p.LineTo(x, y+height)
	p.ClosePath()
}

// Clear resets the path. The segment slice is released rather than
// reused, since painted elements keep the old one.
func (p *Path) Clear() {
	p.Segments = nil
	p.HasCurrentPoint = false
}

// IsEmpty returns true if the path has no segments
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// Clone returns a deep copy.
func (p *Path) Clone() *Path {
	out := *p
	out.Segments = make([]PathSegment, len(p.Segments))
	for i, seg := range p.Segments {
		out.Segments[i] = PathSegment{Type: seg.Type, Points: append([]model.Point(nil), seg.Points...)}
	}
	return &out
}

// Transform returns a copy of the path with every point mapped by m.
func (p *Path) Transform(m model.Matrix) *Path {
	out := p.Clone()
	for _, seg := range out.Segments {
		for i := range seg.Points {
			seg.Points[i] = m.Transform(seg.Points[i])
		}
	}
	out.CurrentPoint = m.Transform(p.CurrentPoint)
	out.SubpathStart = m.Transform(p.SubpathStart)
	return out
}

// Subpath is a flattened subpath: a polyline, closed by h or not.
type Subpath struct {
	Points []model.Point
	Closed bool
}

// Flatten approximates curves with line segments no longer than about
// tolerance and returns the subpaths. A subpath consisting of a single
// moveto is dropped.
func (p *Path) Flatten(tolerance float64) []Subpath {
	if tolerance <= 0 {
		tolerance = 0.5
	}
	var out []Subpath
	var cur *Subpath
	flush := func() {
		if cur != nil && len(cur.Points) > 1 {
			out = append(out, *cur)
		}
		cur = nil
	}
	var last model.Point
	for _, seg := range p.Segments {
		switch seg.Type {
		case PathMoveTo:
			flush()
			last = seg.Points[0]
			cur = &Subpath{Points: []model.Point{last}}
		case PathLineTo:
			if cur == nil {
				cur = &Subpath{Points: []model.Point{last}}
			}
			last = seg.Points[0]
			cur.Points = append(cur.Points, last)
		case PathCurveTo:
			if cur == nil {
				cur = &Subpath{Points: []model.Point{last}}
			}
			cur.Points = appendCubic(cur.Points, last, seg.Points[0], seg.Points[1], seg.Points[2], tolerance)
			last = seg.Points[2]
		case PathClosePath:
			if cur != nil {
				cur.Closed = true
				start := cur.Points[0]
				flush()
				// a segment after h starts from the subpath start
				last = start
			}
		}
	}
	flush()
	return out
}

// appendCubic appends the points of a flattened cubic Bézier, excluding p0.
func appendCubic(pts []model.Point, p0, p1, p2, p3 model.Point, tolerance float64) []model.Point {
	// the control polygon length bounds the curve length
	length := p0.Distance(p1) + p1.Distance(p2) + p2.Distance(p3)
	steps := int(math.Ceil(length / tolerance))
	if steps < 1 {
		steps = 1
	}
	if steps > 256 {
		steps = 256
	}
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		mt := 1 - t
		a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
		pts = append(pts, model.Point{
			X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return pts
}

// Bounds returns the bounding box of the path under m, computed from the
// flattened geometry so curves do not inflate it to their control points.
// ok is false for a path with no drawable segment.
func (p *Path) Bounds(m model.Matrix) (box model.BBox, ok bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, sp := range p.Transform(m).Flatten(0.25) {
		for _, pt := range sp.Points {
			minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
			minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return model.BBox{}, false
	}
	return model.BBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// IsRectangle reports whether the path is a single axis-aligned rectangle
// and returns it.
func (p *Path) IsRectangle() (model.BBox, bool) {
	subs := p.Flatten(1)
	if len(subs) != 1 {
		return model.BBox{}, false
	}
	pts := subs[0].Points
	if len(pts) == 5 && pts[0] == pts[4] {
		pts = pts[:4]
	}
	if len(pts) != 4 {
		return model.BBox{}, false
	}
	for i := 0; i < 4; i++ {
		a, b := pts[i], pts[(i+1)%4]
		if a.X != b.X && a.Y != b.Y {
			return model.BBox{}, false
		}
	}
	box := model.NewBBoxFromPoints(pts[0], pts[2])
	return box, box.IsValid()
}
