package contentstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
)

// resources is a Resources backed by plain category dictionaries.
type resources map[string]core.Dict

func (r resources) Lookup(category, name string) (core.Object, bool) {
	obj, ok := r[category][name]
	return obj, ok && obj != nil
}

type refs map[int]core.Object

func (m refs) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		if v, ok := m[ref.Number]; ok {
			return v, nil
		}
		return core.Null{}, nil
	}
	return obj, nil
}

var helvetica = core.Dict{"Type": core.Name("Font"), "Subtype": core.Name("Type1"), "BaseFont": core.Name("Helvetica")}

func interpret(t *testing.T, content string, res Resources, opts ...Option) ([]model.Element, *core.Warnings) {
	t.Helper()
	w := core.NewWarnings(nil)
	in := NewInterpreter(nil, append([]Option{WithWarnings(w)}, opts...)...)
	if res == nil {
		res = resources{}
	}
	return in.Run([]byte(content), res, graphicsstate.NewGraphicsState()), w
}

func paths(els []model.Element) []*Path {
	var out []*Path
	for _, el := range els {
		if p, ok := el.(*Path); ok {
			out = append(out, p)
		}
	}
	return out
}

func texts(els []model.Element) []*Text {
	var out []*Text
	for _, el := range els {
		if tx, ok := el.(*Text); ok {
			out = append(out, tx)
		}
	}
	return out
}

func images(els []model.Element) []*Image {
	var out []*Image
	for _, el := range els {
		if img, ok := el.(*Image); ok {
			out = append(out, img)
		}
	}
	return out
}

func assertBBox(t *testing.T, want, got model.BBox) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "X")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "Y")
	assert.InDelta(t, want.Width, got.Width, 1e-6, "Width")
	assert.InDelta(t, want.Height, got.Height, 1e-6, "Height")
}

func TestStrokedPath(t *testing.T) {
	els, w := interpret(t, "10 10 m 20 10 l S", nil)
	require.Len(t, els, 1)
	assert.Zero(t, w.Len())

	p := paths(els)[0]
	assert.Equal(t, model.ElementTypePath, p.Type())
	assert.True(t, p.Strokes())
	assert.False(t, p.Fills())
	assertBBox(t, model.BBox{X: 9.5, Y: 9.5, Width: 11, Height: 1}, p.BoundingBox())
}

func TestPaintOperators(t *testing.T) {
	tests := []struct {
		op    string
		paint graphicsstate.Paint
		rule  graphicsstate.FillRule
	}{
		{"S", graphicsstate.PaintStroke, graphicsstate.NonZero},
		{"s", graphicsstate.PaintStroke, graphicsstate.NonZero},
		{"f", graphicsstate.PaintFill, graphicsstate.NonZero},
		{"F", graphicsstate.PaintFill, graphicsstate.NonZero},
		{"f*", graphicsstate.PaintFill, graphicsstate.EvenOdd},
		{"B", graphicsstate.PaintFill | graphicsstate.PaintStroke, graphicsstate.NonZero},
		{"B*", graphicsstate.PaintFill | graphicsstate.PaintStroke, graphicsstate.EvenOdd},
		{"b", graphicsstate.PaintFill | graphicsstate.PaintStroke, graphicsstate.NonZero},
		{"b*", graphicsstate.PaintFill | graphicsstate.PaintStroke, graphicsstate.EvenOdd},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			els, _ := interpret(t, "0 0 m 10 0 l 10 10 l "+tt.op, nil)
			require.Len(t, els, 1)
			p := paths(els)[0]
			assert.Equal(t, tt.paint, p.Paint)
			assert.Equal(t, tt.rule, p.Rule)
		})
	}

	els, _ := interpret(t, "0 0 10 10 re n", nil)
	assert.Empty(t, els, "n paints nothing")
}

func TestFillRule(t *testing.T) {
	// page y grows upward, buffer rows downward
	toPixel := model.Scale(1, -1).Multiply(model.Translate(0, 40))

	tests := []struct {
		op      string
		overlap uint8
	}{
		{"f*", 0},
		{"f", 255},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			els, _ := interpret(t, "0 0 20 20 re 10 10 20 20 re "+tt.op, nil)
			require.Len(t, els, 1)
			img := paths(els)[0].Rasterize(40, 40, toPixel)

			assert.Equal(t, tt.overlap, img.AlphaAt(15, 24).A, "intersection at (15.5, 15.5)")
			assert.Equal(t, uint8(255), img.AlphaAt(5, 34).A, "first rectangle only")
			assert.Equal(t, uint8(255), img.AlphaAt(25, 14).A, "second rectangle only")
			assert.Equal(t, uint8(0), img.AlphaAt(35, 35).A, "outside both")
		})
	}
}

func TestClipPropagation(t *testing.T) {
	content := `q 10 10 20 20 re W n
15 15 10 10 re W n
12 12 m 28 12 l S
0 0 5 5 re f
16 16 2 2 re f
Q
0 0 5 5 re f`
	els, _ := interpret(t, content, nil)
	ps := paths(els)
	require.Len(t, ps, 2, "elements outside the clip are dropped")

	assertBBox(t, model.BBox{X: 16, Y: 16, Width: 2, Height: 2}, ps[0].BBox)
	clip, ok := ps[0].State.ClipBox()
	require.True(t, ok)
	assert.Equal(t, model.BBox{X: 15, Y: 15, Width: 10, Height: 10}, clip)

	_, ok = ps[1].State.ClipBox()
	assert.False(t, ok, "Q restores the unclipped state")
}

func TestClipAppliesAfterPainting(t *testing.T) {
	els, _ := interpret(t, "0 0 10 10 re W f 20 20 5 5 re f 2 2 3 3 re f", nil)
	ps := paths(els)
	require.Len(t, ps, 2)

	assert.False(t, ps[0].State.Clipped, "the clipping path itself is painted unclipped")
	assert.Equal(t, model.BBox{X: 2, Y: 2, Width: 3, Height: 3}, ps[1].BBox)
	assert.Equal(t, model.BBox{X: 0, Y: 0, Width: 10, Height: 10}, ps[1].State.Clip)
}

func TestClipOnlyShrinks(t *testing.T) {
	els, _ := interpret(t, "0 0 10 10 re W n 5 5 100 100 re W n 0 0 1000 1000 re f", nil)
	require.Len(t, els, 1)
	assert.Equal(t, model.BBox{X: 5, Y: 5, Width: 5, Height: 5}, paths(els)[0].State.Clip)
}

func TestEmptyClipHidesEverything(t *testing.T) {
	els, _ := interpret(t, "W n 0 0 10 10 re f BT /F1 10 Tf (x) Tj ET", resources{"Font": {"F1": helvetica}})
	assert.Empty(t, els)
}

func TestTransformedPath(t *testing.T) {
	els, _ := interpret(t, "q 2 0 0 3 10 20 cm 0 0 5 5 re f Q 0 0 1 1 re f", nil)
	ps := paths(els)
	require.Len(t, ps, 2)
	assertBBox(t, model.BBox{X: 10, Y: 20, Width: 10, Height: 15}, ps[0].BBox)
	assert.Equal(t, model.Matrix{2, 0, 0, 3, 10, 20}, ps[0].State.CTM)
	assert.Equal(t, model.Identity(), ps[1].State.CTM)
}

func TestStateSnapshotsAreIndependent(t *testing.T) {
	els, _ := interpret(t, "[3 1] 0 d 0 0 1 1 re S 2 0 0 2 0 0 cm 1 0 0 rg [] 0 d 0 0 1 1 re f", nil)
	ps := paths(els)
	require.Len(t, ps, 2)

	assert.Equal(t, model.Identity(), ps[0].State.CTM)
	assert.Equal(t, []float64{0}, ps[0].State.Fill.Components)
	assert.Equal(t, []float64{3, 1}, ps[0].State.Dash.Array)
	assert.Equal(t, []float64{1, 0, 0}, ps[1].State.Fill.Components)
	assert.Empty(t, ps[1].State.Dash.Array)
}

func TestUnbalancedSaveRestore(t *testing.T) {
	els, w := interpret(t, "Q q q 0 0 1 1 re f", nil)
	require.Len(t, els, 1)
	require.Equal(t, 2, w.Len())
	assert.Contains(t, w.List()[0].Message, "Q without matching q")
	assert.Contains(t, w.List()[1].Message, "2 q without matching Q")
}

func TestOperandValidation(t *testing.T) {
	els, w := interpret(t, "10 m 1 2 3 4 5 6 7 cm /a 1 m 0 0 m 10 0 l S (x) w", nil)
	require.Len(t, els, 1)
	assert.Equal(t, model.Matrix{2, 3, 4, 5, 6, 7}, paths(els)[0].State.CTM, "extra operands are ignored")

	msgs := w.List()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Message, "m needs 2 operands, got 1")
	assert.Contains(t, msgs[1].Message, "not a number")
	assert.Contains(t, msgs[2].Message, "w operand 1")
}

func TestUnknownOperators(t *testing.T) {
	_, w := interpret(t, "foo foo BX bar EX baz 1 2 sh /Span BMC EMC", nil)
	msgs := w.List()
	require.Len(t, msgs, 2, "reported once per name, never inside BX/EX")
	assert.Contains(t, msgs[0].Message, `"foo"`)
	assert.Contains(t, msgs[1].Message, `"baz"`)
}

func TestColors(t *testing.T) {
	res := resources{"ColorSpace": {
		"CS0": core.Array{core.Name("ICCBased"), &core.Stream{Dict: core.Dict{"N": core.Int(4)}}},
		"CS1": core.Array{core.Name("Indexed"), core.Name("DeviceRGB"), core.Int(1), core.String("\x00\x00\x00\xff\xff\xff")},
	}}

	tests := []struct {
		name    string
		content string
		space   string
		comps   []float64
		fill    model.Color
		pattern string
	}{
		{"gray", "0.5 g", "DeviceGray", []float64{0.5}, model.Color{R: 128, G: 128, B: 128}, ""},
		{"rgb", "1 0 0 rg", "DeviceRGB", []float64{1, 0, 0}, model.Color{R: 255}, ""},
		{"cmyk", "0 1 1 0 k", "DeviceCMYK", []float64{0, 1, 1, 0}, model.Color{R: 255}, ""},
		{"icc", "/CS0 cs 0 0 0 1 sc", "ICCBased", []float64{0, 0, 0, 1}, model.Color{}, ""},
		{"initial color", "/CS0 cs", "ICCBased", []float64{0, 0, 0, 0}, model.Color{R: 255, G: 255, B: 255}, ""},
		{"indexed", "/CS1 cs 1 sc", "Indexed", []float64{1}, model.Color{R: 255, G: 255, B: 255}, ""},
		{"pattern", "/Pattern cs /P1 scn", "Pattern", nil, model.Color{}, "P1"},
		{"cmyk space", "/DeviceCMYK cs", "DeviceCMYK", []float64{0, 0, 0, 1}, model.Color{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els, w := interpret(t, tt.content+" 0 0 1 1 re f", res)
			require.Len(t, els, 1)
			assert.Zero(t, w.Len(), "%v", w.List())
			p := paths(els)[0]
			assert.Equal(t, tt.space, p.State.Fill.Space)
			assert.Equal(t, tt.comps, p.State.Fill.Components)
			assert.Equal(t, tt.pattern, p.State.Fill.Pattern)
			assert.Equal(t, tt.fill, p.FillColor)
		})
	}
}

func TestStrokeColorAndBadColors(t *testing.T) {
	els, w := interpret(t, "0 0 1 RG /DeviceRGB cs 1 sc /Nope CS 0 0 1 1 re B", nil)
	require.Len(t, els, 1)
	p := paths(els)[0]
	assert.Equal(t, "DeviceGray", p.State.Stroke.Space, "unknown space falls back to gray")
	assert.Equal(t, model.Color{}, p.StrokeColor)
	assert.Equal(t, "DeviceRGB", p.State.Fill.Space)
	assert.Equal(t, []float64{0, 0, 0}, p.State.Fill.Components, "short sc is skipped")

	msgs := w.List()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Message, "needs 3 components")
	assert.Contains(t, msgs[1].Message, "unknown color space")
}

func TestExtGState(t *testing.T) {
	res := resources{"ExtGState": {"GS1": core.Dict{
		"Type": core.Name("ExtGState"),
		"LW":   core.Int(3),
		"LC":   core.Int(1),
		"LJ":   core.Int(2),
		"ML":   core.Real(4.5),
		"D":    core.Array{core.Array{core.Int(2), core.Int(1)}, core.Int(0)},
		"CA":   core.Real(0.5),
		"ca":   core.Real(0.25),
		"BM":   core.Array{core.Name("Multiply"), core.Name("Normal")},
		"RI":   core.Name("Saturation"),
		"FL":   core.Int(2),
		"OP":   core.Bool(true),
	}}}
	els, w := interpret(t, "/GS1 gs 0 0 10 10 re B /GS9 gs", res)
	require.Len(t, els, 1)
	s := paths(els)[0].State
	assert.Equal(t, 3.0, s.LineWidth)
	assert.Equal(t, graphicsstate.RoundCap, s.LineCap)
	assert.Equal(t, graphicsstate.BevelJoin, s.LineJoin)
	assert.Equal(t, 4.5, s.MiterLimit)
	assert.Equal(t, []float64{2, 1}, s.Dash.Array)
	assert.Equal(t, 0.5, s.StrokeAlpha)
	assert.Equal(t, 0.25, s.FillAlpha)
	assert.Equal(t, "Multiply", s.BlendMode)
	assert.Equal(t, "Saturation", s.RenderingIntent)
	assert.Equal(t, 2.0, s.Flatness)

	require.Equal(t, 1, w.Len())
	assert.Contains(t, w.List()[0].Message, "ExtGState /GS9 not found")
}

func TestExtGStateFont(t *testing.T) {
	r := refs{12: core.Dict{"Type": core.Name("Font"), "Subtype": core.Name("Type1"), "BaseFont": core.Name("Courier")}}
	res := resources{"ExtGState": {"GS2": core.Dict{
		"Font": core.Array{core.IndirectRef{Number: 12}, core.Int(14)},
	}}}
	w := core.NewWarnings(nil)
	els := NewInterpreter(r, WithWarnings(w)).Run([]byte("/GS2 gs BT (AB) Tj ET"), res, graphicsstate.NewGraphicsState())
	require.Len(t, els, 1)
	assert.Zero(t, w.Len(), "%v", w.List())

	tx := texts(els)[0]
	assert.Equal(t, "Courier", tx.BaseFont)
	assert.Equal(t, 14.0, tx.Size)
	assert.InDelta(t, 16.8, tx.BBox.Width, 1e-9)
}

func TestZOrder(t *testing.T) {
	res := resources{
		"Font":    {"F1": helvetica},
		"XObject": {"Im": &core.Stream{Dict: core.Dict{"Subtype": core.Name("Image"), "Width": core.Int(1), "Height": core.Int(1)}, Data: []byte{0}}},
	}
	els, _ := interpret(t, "0 0 1 1 re f BT /F1 1 Tf (a) Tj ET /Im Do", res)
	require.Len(t, els, 3)
	for i, el := range els {
		assert.Equal(t, i, el.ZIndex())
	}
	assert.Equal(t, model.ElementTypePath, els[0].Type())
	assert.Equal(t, model.ElementTypeText, els[1].Type())
	assert.Equal(t, model.ElementTypeImage, els[2].Type())
}

type redColors struct{}

func (redColors) RGB(graphicsstate.Color) model.Color { return model.Color{R: 255} }

func TestColorConverterOption(t *testing.T) {
	els, _ := interpret(t, "0 0 1 1 re f", nil, WithColorConverter(redColors{}))
	require.Len(t, els, 1)
	assert.Equal(t, model.Color{R: 255}, paths(els)[0].FillColor)
}

func TestShowText(t *testing.T) {
	res := resources{"Font": {"F1": helvetica}}
	els, w := interpret(t, "BT /F1 10 Tf 100 700 Td (Hi) Tj ET", res)
	require.Len(t, els, 1)
	assert.Zero(t, w.Len(), "%v", w.List())

	tx := texts(els)[0]
	assert.Equal(t, "Hi", tx.GetText())
	assert.Equal(t, []byte("Hi"), tx.Raw)
	assert.Equal(t, "F1", tx.Font)
	assert.Equal(t, "Helvetica", tx.BaseFont)
	assert.Equal(t, 10.0, tx.FontSize())
	assert.Equal(t, model.Matrix{10, 0, 0, 10, 100, 700}, tx.Matrix)
	assert.Equal(t, model.Color{}, tx.Color)
	assertBBox(t, model.BBox{X: 100, Y: 698, Width: 9.44, Height: 10}, tx.BBox)
}

func TestTextPositioning(t *testing.T) {
	res := resources{"Font": {"F1": helvetica}}

	t.Run("runs advance the text matrix", func(t *testing.T) {
		els, _ := interpret(t, "BT /F1 10 Tf (a) Tj (b) Tj ET", res)
		ts := texts(els)
		require.Len(t, ts, 2)
		assert.InDelta(t, 5.56, ts[1].BBox.X, 1e-9)
		assert.InDelta(t, 5.56, ts[1].State.Text.TextMatrix[4], 1e-9)
	})

	t.Run("quote moves to the next line", func(t *testing.T) {
		els, _ := interpret(t, "BT /F1 10 Tf 12 TL 0 100 Td (a) Tj (b) ' ET", res)
		ts := texts(els)
		require.Len(t, ts, 2)
		assert.InDelta(t, 0, ts[1].BBox.X, 1e-9)
		assert.InDelta(t, 86, ts[1].BBox.Y, 1e-9)
	})

	t.Run("double quote sets spacing", func(t *testing.T) {
		els, _ := interpret(t, `BT /F1 10 Tf 5 1 (a b) " ET`, res)
		ts := texts(els)
		require.Len(t, ts, 1)
		// a: 5.56+1, space: 2.78+1+5, b: 5.56+1
		assert.InDelta(t, 21.9, ts[0].BBox.Width, 1e-9)
	})

	t.Run("horizontal scaling and rise", func(t *testing.T) {
		els, _ := interpret(t, "BT /F1 10 Tf 50 Tz 3 Ts (a) Tj ET", res)
		ts := texts(els)
		require.Len(t, ts, 1)
		assertBBox(t, model.BBox{X: 0, Y: 1, Width: 2.78, Height: 10}, ts[0].BBox)
	})
}

func TestTJSpacing(t *testing.T) {
	res := resources{"Font": {"F1": helvetica}}
	tests := []struct {
		name    string
		content string
		text    string
	}{
		{"word gap", "[(Hello) -250 (World)] TJ", "Hello World"},
		{"kerning", "[(a) -100 (b)] TJ", "ab"},
		{"no double space", "[(a ) -300 (b)] TJ", "a b"},
		{"positive adjustment", "[(a) 500 (b)] TJ", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els, _ := interpret(t, "BT /F1 10 Tf "+tt.content+" ET", res)
			ts := texts(els)
			require.Len(t, ts, 1)
			assert.Equal(t, tt.text, ts[0].Text)
		})
	}

	els, _ := interpret(t, "BT /F1 10 Tf [(a) -1000 (b)] TJ ET", res)
	ts := texts(els)
	require.Len(t, ts, 1)
	assert.InDelta(t, 5.56+10+5.56, ts[0].BBox.Width, 1e-9)
}

func TestTextRenderModes(t *testing.T) {
	res := resources{"Font": {"F1": helvetica}}

	t.Run("invisible text is kept", func(t *testing.T) {
		els, _ := interpret(t, "BT /F1 10 Tf 3 Tr (a) Tj ET", res)
		ts := texts(els)
		require.Len(t, ts, 1)
		assert.Equal(t, 3, ts[0].RenderMode)
	})

	t.Run("stroke modes use the stroke color", func(t *testing.T) {
		els, _ := interpret(t, "1 0 0 rg 0 0 1 RG BT /F1 10 Tf (a) Tj 1 Tr (b) Tj ET", res)
		ts := texts(els)
		require.Len(t, ts, 2)
		assert.Equal(t, model.Color{R: 255}, ts[0].Color)
		assert.Equal(t, model.Color{B: 255}, ts[1].Color)
	})

	t.Run("clip mode clips at ET", func(t *testing.T) {
		els, _ := interpret(t, "BT /F1 10 Tf 7 Tr (abc) Tj ET 0 0 1000 1000 re f", res)
		ps := paths(els)
		require.Len(t, els, 1)
		require.Len(t, ps, 1)
		assertBBox(t, model.BBox{X: 0, Y: -2, Width: 16.12, Height: 10}, ps[0].State.Clip)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, w := interpret(t, "BT 9 Tr ET", res)
		require.Equal(t, 1, w.Len())
		assert.Contains(t, w.List()[0].Message, "invalid text render mode")
	})
}

func TestMissingFont(t *testing.T) {
	els, w := interpret(t, "BT /F9 12 Tf (x) Tj (y) Tj ET BT (z) Tj ET", nil)
	ts := texts(els)
	require.Len(t, ts, 3)
	assert.Equal(t, "Helvetica", ts[0].BaseFont)
	assert.Equal(t, "x", ts[0].Text)

	msgs := w.List()
	require.Len(t, msgs, 1, "reported once per font name")
	assert.Contains(t, msgs[0].Message, "font /F9 not found")

	_, w = interpret(t, "BT (x) Tj ET", nil)
	require.Equal(t, 1, w.Len())
	assert.Contains(t, w.List()[0].Message, "before Tf")
}

func TestVerticalText(t *testing.T) {
	res := resources{"Font": {"V": core.Dict{
		"Type":     core.Name("Font"),
		"Subtype":  core.Name("Type0"),
		"BaseFont": core.Name("MSMincho"),
		"Encoding": core.Name("Identity-V"),
	}}}
	els, _ := interpret(t, "BT /V 10 Tf <00410042> Tj ET", res)
	ts := texts(els)
	require.Len(t, ts, 1)
	assert.True(t, ts[0].Vertical)
	assert.Equal(t, "AB", ts[0].Text)
	assertBBox(t, model.BBox{X: -5, Y: -20, Width: 10, Height: 20}, ts[0].BBox)
}

type fixedFont struct{}

func (fixedFont) Name() string { return "Fixed" }
func (fixedFont) NextCode(data []byte) (uint32, int) { return uint32(data[0]), 1 }
func (fixedFont) Width(uint32) float64 { return 1000 }
func (fixedFont) IsSpace(code uint32, n int) bool { return code == ' ' }
func (fixedFont) IsVertical() bool { return false }
func (fixedFont) Decode(data []byte) string { return string(data) }

type fixedMetrics struct{}

func (fixedMetrics) Font(core.Dict) Font { return fixedFont{} }

func TestFontMetricsOption(t *testing.T) {
	res := resources{"Font": {"F1": helvetica}}
	els, _ := interpret(t, "BT /F1 10 Tf (ab) Tj ET", res, WithFontMetrics(fixedMetrics{}))
	ts := texts(els)
	require.Len(t, ts, 1)
	assert.Equal(t, "Fixed", ts[0].BaseFont)
	assert.InDelta(t, 20, ts[0].BBox.Width, 1e-9)
}

func form(content string, extra core.Dict) *core.Stream {
	dict := core.Dict{
		"Type":    core.Name("XObject"),
		"Subtype": core.Name("Form"),
		"BBox":    core.Array{core.Int(0), core.Int(0), core.Int(10), core.Int(10)},
	}
	for k, v := range extra {
		dict[k] = v
	}
	return &core.Stream{Dict: dict, Data: []byte(content)}
}

func TestFormXObject(t *testing.T) {
	fm := form("0 0 5 5 re f 20 20 5 5 re f", core.Dict{
		"Matrix": core.Array{core.Int(1), core.Int(0), core.Int(0), core.Int(1), core.Int(100), core.Int(100)},
	})
	els, w := interpret(t, "/Fm1 Do 0 0 1 1 re f", resources{"XObject": {"Fm1": fm}})
	assert.Zero(t, w.Len(), "%v", w.List())
	ps := paths(els)
	require.Len(t, ps, 2, "the second form rectangle lies outside /BBox")

	assert.Equal(t, model.BBox{X: 100, Y: 100, Width: 5, Height: 5}, ps[0].BBox)
	assert.Equal(t, model.BBox{X: 100, Y: 100, Width: 10, Height: 10}, ps[0].State.Clip)
	assert.False(t, ps[1].State.Clipped, "the form's state does not leak")
	assert.Equal(t, model.Identity(), ps[1].State.CTM)
}

func TestFormRecursion(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		fm := form("/Fm1 Do 0 0 1 1 re f", nil)
		fm.Ref = core.IndirectRef{Number: 7}
		els, w := interpret(t, "/Fm1 Do", resources{"XObject": {"Fm1": fm}})
		assert.Len(t, els, 1)
		require.Equal(t, 1, w.Len())
		assert.Contains(t, w.List()[0].Message, "draws itself")
	})

	t.Run("depth limit", func(t *testing.T) {
		res := resources{"XObject": {
			"A": form("/B Do 0 0 1 1 re f", nil),
			"B": form("0 0 2 2 re f", nil),
		}}
		els, w := interpret(t, "/A Do", res, WithMaxFormDepth(1))
		ps := paths(els)
		require.Len(t, ps, 1)
		assert.Equal(t, model.BBox{X: 0, Y: 0, Width: 1, Height: 1}, ps[0].BBox)
		require.Equal(t, 1, w.Len())
		assert.Contains(t, w.List()[0].Message, "nested deeper than 1")

		els, w = interpret(t, "/A Do", res)
		assert.Len(t, els, 2)
		assert.Zero(t, w.Len())
	})
}

func TestFormInheritsFont(t *testing.T) {
	fm := form("BT (a) Tj ET", core.Dict{"Resources": core.Dict{}})
	res := resources{
		"Font":    {"F1": helvetica},
		"XObject": {"Fm": fm},
	}
	els, w := interpret(t, "BT /F1 10 Tf ET /Fm Do", res)
	assert.Zero(t, w.Len(), "%v", w.List())
	ts := texts(els)
	require.Len(t, ts, 1)
	assert.Equal(t, "Helvetica", ts[0].BaseFont)
	assert.Equal(t, 10.0, ts[0].Size)
}

func TestFormResources(t *testing.T) {
	fm := form("BT /F2 10 Tf (A) Tj ET", core.Dict{"Resources": core.Dict{
		"Font": core.Dict{"F2": core.Dict{"Type": core.Name("Font"), "Subtype": core.Name("Type1"), "BaseFont": core.Name("Courier")}},
	}})
	els, w := interpret(t, "/Fm Do", resources{"XObject": {"Fm": fm}})
	assert.Zero(t, w.Len(), "%v", w.List())
	ts := texts(els)
	require.Len(t, ts, 1)
	assert.Equal(t, "Courier", ts[0].BaseFont)
}

func group(content string, extra core.Dict) *core.Stream {
	return form(content, mergeDict(core.Dict{
		"BBox":  core.Array{core.Int(0), core.Int(0), core.Int(100), core.Int(100)},
		"Group": core.Dict{"S": core.Name("Transparency"), "CS": core.Name("DeviceGray")},
	}, extra))
}

func mergeDict(a, b core.Dict) core.Dict {
	for k, v := range b {
		a[k] = v
	}
	return a
}

func TestSoftMask(t *testing.T) {
	lum := core.Dict{"S": core.Name("Luminosity"), "G": group("1 g 0 0 50 100 re f", nil)}
	gray := core.Dict{"S": core.Name("Luminosity"), "G": group("1 g 0 0 50 100 re f", nil),
		"BC": core.Array{core.Real(0.5)}}
	alpha := core.Dict{"S": core.Name("Alpha"), "G": group("0.2 g 0 0 50 100 re f", nil)}
	res := resources{"ExtGState": {
		"Lum":    core.Dict{"SMask": lum},
		"Gray":   core.Dict{"SMask": gray},
		"Alpha":  core.Dict{"SMask": alpha},
		"NoMask": core.Dict{"SMask": core.Name("None")},
	}}

	tests := []struct {
		name        string
		content     string
		kind        graphicsstate.SoftMaskKind
		left, right float64
		at          func(x, y float64) model.Point
	}{
		{"luminosity", "/Lum gs", graphicsstate.SoftMaskLuminosity, 1, 0, pt},
		{"backdrop", "/Gray gs", graphicsstate.SoftMaskLuminosity, 1, 0.5, pt},
		{"alpha", "/Alpha gs", graphicsstate.SoftMaskAlpha, 1, 0, pt},
		{"scaled", "2 0 0 2 0 0 cm /Lum gs 1 0 0 1 0 0 cm", graphicsstate.SoftMaskLuminosity, 1, 0,
			func(x, y float64) model.Point { return model.Point{X: 2 * x, Y: 2 * y} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els, w := interpret(t, tt.content+" 0 0 100 100 re f", res, WithSoftMaskResolution(100))
			assert.Zero(t, w.Len(), "%v", w.List())
			ps := paths(els)
			require.Len(t, ps, 1, "the group draws nothing on the page")

			mask := ps[0].State.SoftMask
			require.NotNil(t, mask)
			assert.Equal(t, tt.kind, mask.Kind)
			assert.Equal(t, 100, mask.Width)
			assert.Equal(t, 100, mask.Height)
			assert.InDelta(t, tt.left, mask.At(tt.at(25, 50)), 0.01)
			assert.InDelta(t, tt.right, mask.At(tt.at(75, 50)), 0.01)
		})
	}

	els, _ := interpret(t, "/Lum gs /NoMask gs 0 0 1 1 re f", res)
	require.Len(t, els, 1)
	assert.Nil(t, paths(els)[0].State.SoftMask)
}

func pt(x, y float64) model.Point { return model.Point{X: x, Y: y} }

func TestSoftMaskErrors(t *testing.T) {
	res := resources{"ExtGState": {
		"NoGroup": core.Dict{"SMask": core.Dict{"S": core.Name("Luminosity")}},
		"NoBBox":  core.Dict{"SMask": core.Dict{"S": core.Name("Luminosity"), "G": &core.Stream{Dict: core.Dict{"Subtype": core.Name("Form")}}}},
	}}
	els, w := interpret(t, "/NoGroup gs /NoBBox gs 0 0 1 1 re f", res)
	require.Len(t, els, 1)
	assert.Nil(t, paths(els)[0].State.SoftMask)
	msgs := w.List()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Message, "no /G group")
	assert.Contains(t, msgs[1].Message, "no valid /BBox")
}

func TestInlineImageElement(t *testing.T) {
	els, w := interpret(t, "q 20 0 0 10 100 100 cm BI /W 2 /H 1 /BPC 8 /CS /RGB ID \x01\x02\x03\x04\x05\x06 EI Q", nil)
	assert.Zero(t, w.Len(), "%v", w.List())
	imgs := images(els)
	require.Len(t, imgs, 1)

	img := imgs[0]
	assert.True(t, img.Inline)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.Equal(t, 8, img.BitsPerComponent)
	assert.Equal(t, "DeviceRGB", img.ColorSpace)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, img.Data)
	assert.Equal(t, model.ImageFormatRaw, img.Format)
	assert.Empty(t, img.Filter)
	assert.Equal(t, model.BBox{X: 100, Y: 100, Width: 20, Height: 10}, img.BBox)
}

func TestImageXObject(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xd9}
	res := resources{"XObject": {
		"Im1": &core.Stream{Dict: core.Dict{
			"Subtype": core.Name("Image"), "Width": core.Int(4), "Height": core.Int(4),
			"ColorSpace": core.Name("DeviceGray"), "BitsPerComponent": core.Int(8),
			"Filter": core.Name("DCTDecode"),
		}, Data: jpeg},
		"Mask": &core.Stream{Dict: core.Dict{
			"Subtype": core.Name("Image"), "Width": core.Int(8), "Height": core.Int(1),
			"ImageMask": core.Bool(true), "Filter": core.Name("ASCIIHexDecode"),
		}, Data: []byte("FF>")},
	}}
	els, w := interpret(t, "q 4 0 0 4 0 0 cm /Im1 Do Q /Mask Do /Nope Do", res)
	imgs := images(els)
	require.Len(t, imgs, 2)

	assert.Equal(t, "Im1", imgs[0].Name)
	assert.Equal(t, model.ImageFormatJPEG, imgs[0].Format)
	assert.Equal(t, "DCTDecode", imgs[0].Filter)
	assert.Equal(t, jpeg, imgs[0].Data)
	assert.Equal(t, "DeviceGray", imgs[0].ColorSpace)
	assert.Equal(t, model.BBox{X: 0, Y: 0, Width: 4, Height: 4}, imgs[0].BBox)

	assert.True(t, imgs[1].ImageMask)
	assert.Equal(t, 1, imgs[1].BitsPerComponent)
	assert.Empty(t, imgs[1].ColorSpace)
	assert.Equal(t, []byte{0xff}, imgs[1].Data)
	assert.Equal(t, model.ImageFormatRaw, imgs[1].Format)

	require.Equal(t, 1, w.Len())
	assert.Contains(t, w.List()[0].Message, "XObject /Nope not found")
}
