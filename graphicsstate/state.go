package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfcore/model"
)

// LineCap is the shape at the ends of open stroked subpaths (J operator).
type LineCap int

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

// LineJoin is the shape at the corners of stroked paths (j operator).
type LineJoin int

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

// DashPattern is the d operator's dash array and phase. An empty array is
// a solid line.
type DashPattern struct {
	Array []float64
	Phase float64
}

// Color is a color value tagged with the color space it was set in.
// Conversion to RGB is left to a ColorConverter. Pattern is the pattern
// resource name for /Pattern colors.
type Color struct {
	Space      string
	Components []float64
	Pattern    string
}

// Black is the initial fill and stroke color.
func Black() Color {
	return Color{Space: "DeviceGray", Components: []float64{0}}
}

// InitialColor returns the color a space starts at after CS/cs: black for
// the device spaces, the first component zero for n-component spaces,
// and no components for Pattern.
func InitialColor(space string, components int) Color {
	switch space {
	case "DeviceCMYK":
		return Color{Space: space, Components: []float64{0, 0, 0, 1}}
	case "Pattern":
		return Color{Space: space}
	}
	if components <= 0 {
		components = 1
	}
	return Color{Space: space, Components: make([]float64, components)}
}

// clone copies the components. A color without components, such as a
// pattern selection, always ends up with nil Components.
func (c Color) clone() Color {
	c.Components = append([]float64(nil), c.Components...)
	return c
}

// TextState represents text-specific state
type TextState struct {
	// Font resource name and size (Tf)
	FontName string
	FontSize float64

	CharSpacing       float64 // Tc
	WordSpacing       float64 // Tw
	HorizontalScaling float64 // Tz, percent
	Leading           float64 // TL
	RenderingMode     int     // Tr
	Rise              float64 // Ts

	// Text matrices, valid between BT and ET
	TextMatrix     model.Matrix
	TextLineMatrix model.Matrix
}

// GraphicsState is the drawing context at one point of a content stream.
// It is a value: assigning it copies everything, and the slices it holds
// are never mutated in place, so a saved or emitted copy is never
// affected by later operators.
type GraphicsState struct {
	CTM model.Matrix

	Fill   Color
	Stroke Color

	LineWidth  float64
	LineCap    LineCap
	LineJoin   LineJoin
	MiterLimit float64
	Dash       DashPattern

	RenderingIntent string
	Flatness        float64
	BlendMode       string

	// Constant alpha (ca and CA)
	FillAlpha   float64
	StrokeAlpha float64

	// SoftMask is shared between copies; masks are immutable once built.
	SoftMask *SoftMask

	// Clip is the accumulated clip bounding box in page space. It only
	// ever shrinks. Clipped is false until the first clip is applied.
	Clip    model.BBox
	Clipped bool

	Text TextState
}

// NewGraphicsState creates a new graphics state with default values
func NewGraphicsState() GraphicsState {
	return GraphicsState{
		CTM:             model.Identity(),
		Fill:            Black(),
		Stroke:          Black(),
		LineWidth:       1.0,
		MiterLimit:      10.0,
		RenderingIntent: "RelativeColorimetric",
		Flatness:        1.0,
		BlendMode:       "Normal",
		FillAlpha:       1.0,
		StrokeAlpha:     1.0,
		Text: TextState{
			HorizontalScaling: 100.0,
			TextMatrix:        model.Identity(),
			TextLineMatrix:    model.Identity(),
		},
	}
}

// Clone returns a copy that shares no mutable memory with gs.
func (gs GraphicsState) Clone() GraphicsState {
	gs.Fill = gs.Fill.clone()
	gs.Stroke = gs.Stroke.clone()
	gs.Dash.Array = append([]float64(nil), gs.Dash.Array...)
	return gs
}

// Transform concatenates m to the CTM (cm operator): m is applied first.
func (gs *GraphicsState) Transform(m model.Matrix) {
	gs.CTM = m.Multiply(gs.CTM)
}

// SetLineWidth sets the line width (w operator)
func (gs *GraphicsState) SetLineWidth(width float64) {
	gs.LineWidth = width
}

// SetDash sets the dash pattern (d operator)
func (gs *GraphicsState) SetDash(array []float64, phase float64) {
	gs.Dash = DashPattern{Array: append([]float64(nil), array...), Phase: phase}
}

// SetFillColor sets the fill color
func (gs *GraphicsState) SetFillColor(c Color) {
	gs.Fill = c.clone()
}

// SetStrokeColor sets the stroke color
func (gs *GraphicsState) SetStrokeColor(c Color) {
	gs.Stroke = c.clone()
}

// IntersectClip narrows the clip to b, given in page space.
func (gs *GraphicsState) IntersectClip(b model.BBox) {
	if !gs.Clipped {
		gs.Clip = b
		gs.Clipped = true
		return
	}
	gs.Clip = gs.Clip.Intersection(b)
}

// ClipBox returns the clip bounding box and whether one is set.
func (gs *GraphicsState) ClipBox() (model.BBox, bool) {
	return gs.Clip, gs.Clipped
}

// Visible reports whether a page-space box can show through the clip.
// Boxes that merely touch the clip edge are not visible.
func (gs *GraphicsState) Visible(b model.BBox) bool {
	if !gs.Clipped {
		return true
	}
	if gs.Clip.IsEmpty() {
		return false
	}
	if b.Width == 0 || b.Height == 0 {
		// hairlines have no area; test the segment against the closed box
		return b.Left() <= gs.Clip.Right() && b.Right() >= gs.Clip.Left() &&
			b.Bottom() <= gs.Clip.Top() && b.Top() >= gs.Clip.Bottom()
	}
	return !gs.Clip.Intersection(b).IsEmpty()
}

// SetFont sets the current font (Tf operator)
func (gs *GraphicsState) SetFont(name string, size float64) {
	gs.Text.FontName = name
	gs.Text.FontSize = size
}

// BeginText initializes text state (BT operator)
func (gs *GraphicsState) BeginText() {
	gs.Text.TextMatrix = model.Identity()
	gs.Text.TextLineMatrix = model.Identity()
}

// SetTextMatrix sets the text matrix (Tm operator)
func (gs *GraphicsState) SetTextMatrix(m model.Matrix) {
	gs.Text.TextMatrix = m
	gs.Text.TextLineMatrix = m
}

// TranslateText moves to the start of the next line offset by (tx, ty)
// (Td operator).
func (gs *GraphicsState) TranslateText(tx, ty float64) {
	gs.Text.TextLineMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextLineMatrix)
	gs.Text.TextMatrix = gs.Text.TextLineMatrix
}

// TranslateTextSetLeading translates text and sets leading (TD operator)
func (gs *GraphicsState) TranslateTextSetLeading(tx, ty float64) {
	gs.Text.Leading = -ty
	gs.TranslateText(tx, ty)
}

// NextLine moves to next line (T* operator)
func (gs *GraphicsState) NextLine() {
	gs.TranslateText(0, -gs.Text.Leading)
}

// AdvanceText moves the text matrix by a displacement in unscaled text
// space, after a glyph or a TJ adjustment.
func (gs *GraphicsState) AdvanceText(tx, ty float64) {
	gs.Text.TextMatrix = model.Translate(tx, ty).Multiply(gs.Text.TextMatrix)
}

// GlyphAdvance returns the horizontal displacement of one glyph of width
// w (in thousandths of an em), with Tc, Tw (for single-byte space codes)
// and Tz applied.
func (gs *GraphicsState) GlyphAdvance(w float64, isSpace bool) float64 {
	tx := w/1000*gs.Text.FontSize + gs.Text.CharSpacing
	if isSpace {
		tx += gs.Text.WordSpacing
	}
	return tx * gs.Text.HorizontalScaling / 100
}

// TextRenderingMatrix maps glyph space (scaled to the font size) to page
// space: [Tfs*Th 0 0 Tfs 0 Trise] x Tm x CTM.
func (gs *GraphicsState) TextRenderingMatrix() model.Matrix {
	t := gs.Text
	m := model.Matrix{t.FontSize * t.HorizontalScaling / 100, 0, 0, t.FontSize, 0, t.Rise}
	return m.Multiply(t.TextMatrix).Multiply(gs.CTM)
}

// GetTextPosition returns the current text position in page space
func (gs *GraphicsState) GetTextPosition() (x, y float64) {
	p := gs.Text.TextMatrix.Multiply(gs.CTM).Transform(model.Point{X: 0, Y: gs.Text.Rise})
	return p.X, p.Y
}

// GetEffectiveFontSize returns the font size accounting for the text
// matrix and CTM; a Tf size of 1 scaled by Tm is common.
func (gs *GraphicsState) GetEffectiveFontSize() float64 {
	m := gs.Text.TextMatrix.Multiply(gs.CTM)
	return math.Abs(gs.Text.FontSize) * math.Hypot(m[2], m[3])
}

// Stack holds the states saved by q. Restoring past the bottom is
// tolerated: the current state is kept and the underflow counted.
type Stack struct {
	current    GraphicsState
	saved      []GraphicsState
	underflows int
}

// NewStack creates a stack whose current state is initial.
func NewStack(initial GraphicsState) *Stack {
	return &Stack{current: initial.Clone()}
}

// Current returns the live state that operators modify.
func (s *Stack) Current() *GraphicsState { return &s.current }

// Snapshot returns an independent copy of the current state.
func (s *Stack) Snapshot() GraphicsState { return s.current.Clone() }

// Save pushes a copy of the current state (q operator)
func (s *Stack) Save() {
	s.saved = append(s.saved, s.current.Clone())
}

// Restore pops the most recently saved state (Q operator). It reports
// false, leaving the state unchanged, when nothing was saved.
func (s *Stack) Restore() bool {
	if len(s.saved) == 0 {
		s.underflows++
		return false
	}
	s.current = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
	return true
}

// Depth returns the number of saved states.
func (s *Stack) Depth() int { return len(s.saved) }

// Underflows returns how many Q operators found nothing to restore.
func (s *Stack) Underflows() int { return s.underflows }

// Unwind restores saved states until the depth is at most depth and
// returns the number popped.
func (s *Stack) Unwind(depth int) int {
	n := 0
	for len(s.saved) > depth && depth >= 0 {
		s.Restore()
		n++
	}
	return n
}
