package contentstream

import (
	"strings"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/font"
	"github.com/tsawler/pdfcore/model"
)

// Font is what text showing needs from a font: code splitting, widths
// and text.
type Font interface {
	Name() string
	NextCode(data []byte) (code uint32, n int)
	Width(code uint32) float64 // thousandths of an em
	IsSpace(code uint32, n int) bool
	IsVertical() bool
	Decode(data []byte) string
}

// FontMetrics loads the Font of a font resource dictionary. A nil
// dictionary asks for the fallback font.
type FontMetrics interface {
	Font(dict core.Dict) Font
}

type standardFonts struct{ r Resolver }

// StandardFonts returns the default FontMetrics, backed by package font.
func StandardFonts(r Resolver) FontMetrics {
	return standardFonts{r: r}
}

func (s standardFonts) Font(dict core.Dict) Font {
	if dict == nil {
		return font.Default()
	}
	return font.Load(dict, s.r)
}

const (
	// a TJ adjustment of at least this many thousandths of an em to the
	// right separates words
	spaceThreshold = 200

	// glyph box in ems relative to the baseline, for bounding boxes
	ascent  = 0.8
	descent = -0.2

	// vertical displacement of every glyph, in thousandths of an em
	verticalAdvance = -1000
)

// text handles the text state, positioning and showing operators.
func (in *Interpreter) text(f *frame, op Operation, operands []core.Object) {
	gs := f.stack.Current()
	switch op.Operator {
	case "BT":
		gs.BeginText()
		f.textClip, f.textClipped = model.BBox{}, false
	case "ET":
		if f.textClipped {
			gs.IntersectClip(f.textClip)
			f.textClip, f.textClipped = model.BBox{}, false
		}
	case "Tc", "Tw", "Tz", "TL", "Ts", "Tr":
		v, ok := in.numbers(f, op, operands)
		if !ok {
			return
		}
		switch op.Operator {
		case "Tc":
			gs.Text.CharSpacing = v[0]
		case "Tw":
			gs.Text.WordSpacing = v[0]
		case "Tz":
			gs.Text.HorizontalScaling = v[0]
		case "TL":
			gs.Text.Leading = v[0]
		case "Ts":
			gs.Text.Rise = v[0]
		case "Tr":
			if v[0] < 0 || v[0] > 7 {
				in.warnAt(f, op.Offset, "invalid text render mode %g; skipped", v[0])
				return
			}
			gs.Text.RenderingMode = int(v[0])
		}
	case "Tf":
		name, ok := in.name(f, op, operands[0])
		if !ok {
			return
		}
		size, ok := core.ToFloat(operands[1])
		if !ok {
			in.warnAt(f, op.Offset, "Tf size is %s, not a number; skipped", operands[1].Type())
			return
		}
		gs.SetFont(name, size)
		in.font(f, op, name)
	case "Td", "TD":
		v, ok := in.numbers(f, op, operands)
		if !ok {
			return
		}
		if op.Operator == "TD" {
			gs.TranslateTextSetLeading(v[0], v[1])
		} else {
			gs.TranslateText(v[0], v[1])
		}
	case "Tm":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.SetTextMatrix(model.Matrix(v))
		}
	case "T*":
		gs.NextLine()
	case "Tj":
		if s, ok := in.str(f, op, operands[0]); ok {
			in.show(f, op, core.Array{core.String(s)})
		}
	case "'":
		if s, ok := in.str(f, op, operands[0]); ok {
			gs.NextLine()
			in.show(f, op, core.Array{core.String(s)})
		}
	case "\"":
		v, ok := in.numbers(f, op, operands[:2])
		s, ok2 := in.str(f, op, operands[2])
		if !ok || !ok2 {
			return
		}
		gs.Text.WordSpacing = v[0]
		gs.Text.CharSpacing = v[1]
		gs.NextLine()
		in.show(f, op, core.Array{core.String(s)})
	case "TJ":
		arr, ok := operands[0].(core.Array)
		if !ok {
			in.warnAt(f, op.Offset, "TJ operand is %s, not an array; skipped", operands[0].Type())
			return
		}
		in.show(f, op, arr)
	}
}

func (in *Interpreter) str(f *frame, op Operation, o core.Object) (string, bool) {
	s, ok := o.(core.String)
	if !ok {
		in.warnAt(f, op.Offset, "%s operand is %s, not a string; skipped", op.Operator, o.Type())
		return "", false
	}
	return string(s), true
}

// font returns the font of a resource name, loading it on first use.
// Frames see the fonts of the frames they were entered from, since a form
// inherits the font of the state it is drawn in.
func (in *Interpreter) font(f *frame, op Operation, name string) Font {
	for fr := f; fr != nil; fr = fr.parent {
		if fnt, ok := fr.fonts[name]; ok {
			return fnt
		}
		if fr.res == nil {
			continue
		}
		if obj, ok := fr.res.Lookup("Font", name); ok {
			if dict, ok := obj.(core.Dict); ok {
				fnt := in.metrics.Font(dict)
				fr.fonts[name] = fnt
				return fnt
			}
		}
	}
	if name == "" {
		in.warnAt(f, op.Offset, "text shown before Tf; using the default font")
	} else {
		in.warnAt(f, op.Offset, "font /%s not found; using the default font", name)
	}
	fnt := in.metrics.Font(nil)
	f.fonts[name] = fnt
	return fnt
}

// show advances the text matrix over a TJ-style array of strings and
// adjustments and emits one Text element for it.
func (in *Interpreter) show(f *frame, op Operation, parts core.Array) {
	gs := f.stack.Current()
	fnt := in.font(f, op, gs.Text.FontName)
	vertical := fnt.IsVertical()
	fs := gs.Text.FontSize
	th := gs.Text.HorizontalScaling / 100

	start := gs.Text.TextMatrix
	trm := gs.TextRenderingMatrix()
	var raw []byte
	var sb strings.Builder
	dx, dy := 0.0, 0.0 // displacement in the text space of start

	for _, part := range parts {
		if adj, ok := core.ToFloat(part); ok {
			d := -adj / 1000 * fs
			if vertical {
				dy += d
				gs.AdvanceText(0, d)
			} else {
				dx += d * th
				gs.AdvanceText(d*th, 0)
			}
			if adj <= -spaceThreshold && sb.Len() > 0 && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
			continue
		}
		s, ok := part.(core.String)
		if !ok {
			in.warnAt(f, op.Offset, "%s element is %s; ignored", op.Operator, part.Type())
			continue
		}
		data := []byte(s)
		raw = append(raw, data...)
		sb.WriteString(fnt.Decode(data))
		for len(data) > 0 {
			code, n := fnt.NextCode(data)
			if n <= 0 {
				n = 1
			}
			space := fnt.IsSpace(code, n)
			if vertical {
				ty := verticalAdvance/1000*fs + gs.Text.CharSpacing
				if space {
					ty += gs.Text.WordSpacing
				}
				dy += ty
				gs.AdvanceText(0, ty)
			} else {
				tx := gs.GlyphAdvance(fnt.Width(code), space)
				dx += tx
				gs.AdvanceText(tx, 0)
			}
			data = data[n:]
		}
	}
	if len(raw) == 0 {
		return
	}

	var box model.BBox
	if vertical {
		box = model.BBoxFromRect(-fs/2, 0, fs/2, dy)
	} else {
		rise := gs.Text.Rise
		box = model.BBoxFromRect(0, rise+descent*fs, dx, rise+ascent*fs)
	}
	box = start.Multiply(gs.CTM).TransformBBox(box)

	mode := gs.Text.RenderingMode
	if mode >= 4 {
		if f.textClipped {
			f.textClip = f.textClip.Union(box)
		} else {
			f.textClip, f.textClipped = box, true
		}
	}
	if mode == 7 || !gs.Visible(box) {
		return
	}
	color := gs.Fill
	if mode == 1 || mode == 5 {
		color = gs.Stroke
	}
	state := f.stack.Snapshot()
	// the element describes where the run starts
	state.Text.TextMatrix = start
	in.elements = append(in.elements, &Text{
		Raw:        raw,
		Text:       sb.String(),
		Font:       gs.Text.FontName,
		BaseFont:   fnt.Name(),
		Size:       fs,
		RenderMode: mode,
		Vertical:   vertical,
		Matrix:     trm,
		State:      state,
		Color:      in.colors.RGB(color),
		BBox:       box,
		Z:          len(in.elements),
	})
}

// setFontRef installs the font of an ExtGState /Font entry. The font has
// no resource name, so it is cached under one derived from its object.
func (in *Interpreter) setFontRef(f *frame, ref core.Object, size float64) bool {
	dict, ok := in.resolve(ref).(core.Dict)
	if !ok {
		return false
	}
	key := "#gs"
	if r, ok := ref.(core.IndirectRef); ok {
		key = "#" + r.String()
	}
	f.fonts[key] = in.metrics.Font(dict)
	f.stack.Current().SetFont(key, size)
	return true
}
