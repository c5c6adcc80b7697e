package graphicsstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/model"
)

func TestNewGraphicsState(t *testing.T) {
	gs := NewGraphicsState()

	assert.Equal(t, 1.0, gs.LineWidth)
	assert.Equal(t, 10.0, gs.MiterLimit)
	assert.Equal(t, 100.0, gs.Text.HorizontalScaling)
	assert.Equal(t, model.Identity(), gs.CTM)
	assert.Equal(t, Black(), gs.Fill)
	assert.Equal(t, Black(), gs.Stroke)
	assert.Equal(t, 1.0, gs.FillAlpha)
	assert.Equal(t, 1.0, gs.StrokeAlpha)
	assert.False(t, gs.Clipped)
	assert.Nil(t, gs.SoftMask)
}

func TestInitialColor(t *testing.T) {
	tests := []struct {
		space string
		n     int
		want  []float64
	}{
		{"DeviceGray", 1, []float64{0}},
		{"DeviceRGB", 3, []float64{0, 0, 0}},
		{"DeviceCMYK", 4, []float64{0, 0, 0, 1}},
		{"ICCBased", 3, []float64{0, 0, 0}},
		{"Separation", 0, []float64{0}},
		{"Pattern", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.space, func(t *testing.T) {
			c := InitialColor(tt.space, tt.n)
			assert.Equal(t, tt.space, c.Space)
			assert.Equal(t, tt.want, c.Components)
		})
	}
}

func TestStackSaveRestore(t *testing.T) {
	s := NewStack(NewGraphicsState())
	s.Current().SetLineWidth(2.5)
	s.Current().SetFont("F1", 14)

	s.Save()
	s.Current().SetLineWidth(5)
	s.Current().SetFont("F2", 18)
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, 5.0, s.Current().LineWidth)

	require.True(t, s.Restore())
	assert.Equal(t, 2.5, s.Current().LineWidth)
	assert.Equal(t, "F1", s.Current().Text.FontName)
	assert.Equal(t, 14.0, s.Current().Text.FontSize)
	assert.Equal(t, 0, s.Depth())
}

func TestStackUnderflowClamps(t *testing.T) {
	s := NewStack(NewGraphicsState())
	s.Current().SetLineWidth(3)

	assert.False(t, s.Restore())
	assert.False(t, s.Restore())
	assert.Equal(t, 2, s.Underflows())
	assert.Equal(t, 0, s.Depth())
	assert.Equal(t, 3.0, s.Current().LineWidth, "state survives an unbalanced Q")
}

func TestStackUnwind(t *testing.T) {
	s := NewStack(NewGraphicsState())
	for i := 0; i < 3; i++ {
		s.Save()
		s.Current().SetLineWidth(float64(i + 2))
	}
	assert.Equal(t, 2, s.Unwind(1))
	assert.Equal(t, 1, s.Depth())
	assert.Equal(t, 2.0, s.Current().LineWidth)
	assert.Equal(t, 0, s.Unwind(5))
}

func TestSavedStateDoesNotAlias(t *testing.T) {
	s := NewStack(NewGraphicsState())
	s.Current().SetFillColor(Color{Space: "DeviceRGB", Components: []float64{1, 0, 0}})
	s.Current().SetDash([]float64{3, 1}, 0)
	s.Save()

	// mutate the live state's slices in place
	s.Current().Fill.Components[0] = 0.25
	s.Current().Dash.Array[0] = 9
	snap := s.Snapshot()
	s.Current().Fill.Components[1] = 0.5

	assert.Equal(t, []float64{0.25, 0, 0}, snap.Fill.Components)

	require.True(t, s.Restore())
	assert.Equal(t, []float64{1, 0, 0}, s.Current().Fill.Components)
	assert.Equal(t, []float64{3, 1}, s.Current().Dash.Array)
}

func TestSetColorCopiesComponents(t *testing.T) {
	gs := NewGraphicsState()
	comps := []float64{0.1, 0.2, 0.3}
	gs.SetStrokeColor(Color{Space: "DeviceRGB", Components: comps})
	comps[0] = 1
	assert.Equal(t, 0.1, gs.Stroke.Components[0])
}

func TestSetColorWithoutComponents(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFillColor(Color{Space: "Pattern", Components: []float64{}, Pattern: "P1"})
	assert.Nil(t, gs.Fill.Components)
	assert.Equal(t, InitialColor("Pattern", 0).Components, gs.Fill.Components)
	assert.Equal(t, "P1", gs.Fill.Pattern)
}

func TestTransformConcatenatesBeforeCTM(t *testing.T) {
	gs := NewGraphicsState()
	gs.Transform(model.Translate(100, 0))
	gs.Transform(model.Scale(2, 2))

	p := gs.CTM.Transform(model.Point{X: 1, Y: 1})
	assert.InDelta(t, 102, p.X, 1e-9)
	assert.InDelta(t, 2, p.Y, 1e-9)
}

func TestTextPositioning(t *testing.T) {
	gs := NewGraphicsState()
	gs.BeginText()

	gs.TranslateText(10, 20)
	x, y := gs.GetTextPosition()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 20.0, y)

	gs.TranslateText(5, 0)
	x, _ = gs.GetTextPosition()
	assert.Equal(t, 15.0, x)

	gs.TranslateTextSetLeading(0, -14)
	assert.Equal(t, 14.0, gs.Text.Leading)
	_, y = gs.GetTextPosition()
	assert.Equal(t, 6.0, y)

	gs.NextLine()
	x, y = gs.GetTextPosition()
	assert.Equal(t, 15.0, x)
	assert.Equal(t, -8.0, y)

	gs.SetTextMatrix(model.Translate(72, 700))
	x, y = gs.GetTextPosition()
	assert.Equal(t, 72.0, x)
	assert.Equal(t, 700.0, y)
	assert.Equal(t, gs.Text.TextMatrix, gs.Text.TextLineMatrix)

	gs.BeginText()
	assert.Equal(t, model.Identity(), gs.Text.TextMatrix)
}

func TestAdvanceTextKeepsLineMatrix(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetTextMatrix(model.Translate(10, 10))
	gs.AdvanceText(30, 0)

	x, _ := gs.GetTextPosition()
	assert.Equal(t, 40.0, x)
	assert.Equal(t, 10.0, gs.Text.TextLineMatrix[4])
}

func TestGlyphAdvance(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("F1", 10)
	assert.InDelta(t, 5, gs.GlyphAdvance(500, false), 1e-9)

	gs.Text.CharSpacing = 1
	assert.InDelta(t, 6, gs.GlyphAdvance(500, false), 1e-9)

	gs.Text.WordSpacing = 2
	assert.InDelta(t, 8, gs.GlyphAdvance(500, true), 1e-9)
	assert.InDelta(t, 6, gs.GlyphAdvance(500, false), 1e-9)

	gs.Text.HorizontalScaling = 50
	assert.InDelta(t, 4, gs.GlyphAdvance(500, true), 1e-9)
}

func TestTextRenderingMatrix(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("F1", 12)
	gs.SetTextMatrix(model.Translate(72, 700))
	assert.Equal(t, model.Matrix{12, 0, 0, 12, 72, 700}, gs.TextRenderingMatrix())

	gs.Text.Rise = 3
	gs.Text.HorizontalScaling = 50
	assert.Equal(t, model.Matrix{6, 0, 0, 12, 72, 703}, gs.TextRenderingMatrix())

	gs.Transform(model.Scale(2, 2))
	trm := gs.TextRenderingMatrix()
	assert.Equal(t, 144.0, trm[4])
	assert.Equal(t, 1406.0, trm[5])
}

func TestEffectiveFontSize(t *testing.T) {
	gs := NewGraphicsState()
	gs.SetFont("F1", 1)
	gs.SetTextMatrix(model.Scale(12, 12))
	assert.InDelta(t, 12, gs.GetEffectiveFontSize(), 1e-9)

	gs.Transform(model.Scale(0.5, 0.5))
	assert.InDelta(t, 6, gs.GetEffectiveFontSize(), 1e-9)
}

func TestIntersectClipOnlyShrinks(t *testing.T) {
	gs := NewGraphicsState()
	_, ok := gs.ClipBox()
	assert.False(t, ok)

	gs.IntersectClip(model.BBoxFromRect(10, 10, 30, 30))
	clip, ok := gs.ClipBox()
	require.True(t, ok)
	assert.Equal(t, model.BBoxFromRect(10, 10, 30, 30), clip)

	gs.IntersectClip(model.BBoxFromRect(0, 0, 100, 100))
	assert.Equal(t, model.BBoxFromRect(10, 10, 30, 30), gs.Clip)

	gs.IntersectClip(model.BBoxFromRect(15, 12, 25, 40))
	assert.Equal(t, model.BBoxFromRect(15, 12, 25, 30), gs.Clip)
}

func TestVisible(t *testing.T) {
	gs := NewGraphicsState()
	assert.True(t, gs.Visible(model.NewBBox(-1000, -1000, 1, 1)), "unclipped state shows everything")

	gs.IntersectClip(model.BBoxFromRect(10, 10, 20, 20))
	tests := []struct {
		name string
		box  model.BBox
		want bool
	}{
		{"inside", model.NewBBox(12, 12, 2, 2), true},
		{"overlapping", model.NewBBox(18, 18, 10, 10), true},
		{"outside", model.NewBBox(40, 40, 5, 5), false},
		{"touching edge", model.NewBBox(20, 10, 5, 5), false},
		{"vertical hairline through", model.NewBBox(15, 0, 0, 100), true},
		{"vertical hairline outside", model.NewBBox(25, 0, 0, 100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gs.Visible(tt.box))
		})
	}

	gs.IntersectClip(model.BBoxFromRect(50, 50, 60, 60))
	assert.False(t, gs.Visible(model.NewBBox(12, 12, 2, 2)), "an empty clip hides everything")
}
