package graphicsstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/model"
)

func TestPathConstruction(t *testing.T) {
	p := NewPath()
	assert.True(t, p.IsEmpty())
	assert.False(t, p.HasCurrentPoint)

	p.MoveTo(100, 200)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, PathMoveTo, p.Segments[0].Type)
	assert.Equal(t, model.Point{X: 100, Y: 200}, p.CurrentPoint)
	assert.Equal(t, model.Point{X: 100, Y: 200}, p.SubpathStart)

	p.LineTo(150, 200)
	p.CurveTo(10, 20, 30, 40, 50, 60)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, PathCurveTo, p.Segments[2].Type)
	assert.Len(t, p.Segments[2].Points, 3)
	assert.Equal(t, model.Point{X: 50, Y: 60}, p.CurrentPoint)

	p.ClosePath()
	assert.Equal(t, PathClosePath, p.Segments[3].Type)
	assert.Equal(t, model.Point{X: 100, Y: 200}, p.CurrentPoint, "h returns to the subpath start")
}

func TestPathLineToWithoutCurrentPoint(t *testing.T) {
	p := NewPath()
	p.LineTo(100, 200)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, PathMoveTo, p.Segments[0].Type)
	assert.True(t, p.HasCurrentPoint)
}

func TestPathConsecutiveMovesCollapse(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.MoveTo(5, 5)
	require.Len(t, p.Segments, 1)
	assert.Equal(t, model.Point{X: 5, Y: 5}, p.Segments[0].Points[0])
}

func TestPathCurveShorthands(t *testing.T) {
	p := NewPath()
	p.CurveToV(20, 30, 40, 50)
	assert.True(t, p.IsEmpty(), "v needs a current point")

	p.MoveTo(0, 0)
	p.CurveToV(20, 30, 40, 50)
	assert.Equal(t, model.Point{}, p.Segments[1].Points[0], "v uses the current point as first control point")

	p.CurveToY(10, 20, 70, 80)
	assert.Equal(t, model.Point{X: 70, Y: 80}, p.Segments[2].Points[1], "y uses the end point as second control point")
	assert.Equal(t, model.Point{X: 70, Y: 80}, p.CurrentPoint)
}

func TestPathRectangle(t *testing.T) {
	p := NewPath()
	p.Rectangle(10, 20, 100, 50)

	types := make([]string, len(p.Segments))
	for i, seg := range p.Segments {
		types[i] = seg.Type.String()
	}
	assert.Equal(t, []string{"m", "l", "l", "l", "h"}, types)

	box, ok := p.IsRectangle()
	require.True(t, ok)
	assert.Equal(t, model.NewBBox(10, 20, 100, 50), box)
}

func TestPathIsRectangle(t *testing.T) {
	tri := NewPath()
	tri.MoveTo(0, 0)
	tri.LineTo(10, 0)
	tri.LineTo(5, 10)
	tri.ClosePath()
	_, ok := tri.IsRectangle()
	assert.False(t, ok)

	two := NewPath()
	two.Rectangle(0, 0, 10, 10)
	two.Rectangle(20, 20, 10, 10)
	_, ok = two.IsRectangle()
	assert.False(t, ok)

	negative := NewPath()
	negative.Rectangle(10, 10, -5, -5)
	box, ok := negative.IsRectangle()
	require.True(t, ok)
	assert.Equal(t, model.NewBBox(5, 5, 5, 5), box)
}

func TestPathClearReleasesSegments(t *testing.T) {
	p := NewPath()
	p.Rectangle(0, 0, 10, 10)
	kept := p.Segments

	p.Clear()
	assert.True(t, p.IsEmpty())
	assert.False(t, p.HasCurrentPoint)

	p.MoveTo(99, 99)
	assert.Equal(t, model.Point{X: 0, Y: 0}, kept[0].Points[0], "a painted path keeps its geometry")
}

func TestPathTransform(t *testing.T) {
	p := NewPath()
	p.Rectangle(0, 0, 10, 10)
	q := p.Transform(model.Translate(5, 5).Multiply(model.Scale(2, 2)))

	box, ok := q.IsRectangle()
	require.True(t, ok)
	assert.Equal(t, model.NewBBox(10, 10, 20, 20), box)

	orig, _ := p.IsRectangle()
	assert.Equal(t, model.NewBBox(0, 0, 10, 10), orig, "Transform returns a copy")
}

func TestPathFlatten(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.LineTo(10, 0)
	p.MoveTo(50, 50) // replaced by the next moveto
	p.MoveTo(20, 20)
	p.LineTo(30, 20)
	p.LineTo(30, 30)
	p.ClosePath()
	p.LineTo(40, 40) // starts again from the subpath start

	subs := p.Flatten(1)
	require.Len(t, subs, 3)
	assert.False(t, subs[0].Closed)
	assert.Equal(t, []model.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, subs[0].Points)
	assert.True(t, subs[1].Closed)
	assert.Len(t, subs[1].Points, 3)
	assert.Equal(t, []model.Point{{X: 20, Y: 20}, {X: 40, Y: 40}}, subs[2].Points)
}

func TestPathFlattenCurve(t *testing.T) {
	p := NewPath()
	p.MoveTo(0, 0)
	p.CurveTo(0, 100, 100, 100, 100, 0)

	subs := p.Flatten(1)
	require.Len(t, subs, 1)
	pts := subs[0].Points
	assert.Greater(t, len(pts), 10)
	assert.Equal(t, model.Point{X: 100, Y: 0}, pts[len(pts)-1])
	for i := 1; i < len(pts); i++ {
		assert.LessOrEqual(t, pts[i-1].Distance(pts[i]), 1.5)
	}
}

func TestPathBounds(t *testing.T) {
	p := NewPath()
	_, ok := p.Bounds(model.Identity())
	assert.False(t, ok)

	p.MoveTo(0, 0)
	p.CurveTo(0, 100, 100, 100, 100, 0)
	box, ok := p.Bounds(model.Identity())
	require.True(t, ok)
	// the curve peaks at 75, well below its control points
	assert.InDelta(t, 75, box.Top(), 0.1)
	assert.InDelta(t, 100, box.Width, 1e-9)

	p = NewPath()
	p.Rectangle(0, 0, 10, 20)
	box, _ = p.Bounds(model.Scale(2, 2))
	assert.Equal(t, model.NewBBox(0, 0, 20, 40), box)
}
