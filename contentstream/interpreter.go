package contentstream

import (
	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
)

const (
	// DefaultMaxFormDepth bounds the nesting of form XObjects.
	DefaultMaxFormDepth = 12
	// DefaultSoftMaskResolution is the longest side, in samples, of a
	// rasterized soft mask.
	DefaultSoftMaskResolution = 256
)

// Resources looks up named resources, such as a font in the /Font
// category. *pages.Resources implements it.
type Resources interface {
	Lookup(category, name string) (core.Object, bool)
}

// Resolver resolves indirect references.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

type direct struct{}

func (direct) Resolve(obj core.Object) (core.Object, error) { return obj, nil }

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithWarnings sets the collector for tolerated content errors.
func WithWarnings(w *core.Warnings) Option {
	return func(in *Interpreter) { in.warnings = w }
}

// WithFontMetrics replaces the font collaborator.
func WithFontMetrics(fm FontMetrics) Option {
	return func(in *Interpreter) { in.metrics = fm }
}

// WithColorConverter replaces the color collaborator.
func WithColorConverter(cc ColorConverter) Option {
	return func(in *Interpreter) {
		if cc != nil {
			in.colors = cc
		}
	}
}

// WithMaxFormDepth bounds form XObject nesting.
func WithMaxFormDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxFormDepth = n
		}
	}
}

// WithSoftMaskResolution sets the longest side of rasterized soft masks.
func WithSoftMaskResolution(px int) Option {
	return func(in *Interpreter) {
		if px > 0 {
			in.maskResolution = px
		}
	}
}

// Interpreter executes content streams and collects the elements they
// draw. Malformed content never stops it: the offending operator is
// skipped and a warning recorded. An Interpreter is not safe for
// concurrent use.
type Interpreter struct {
	resolver       Resolver
	warnings       *core.Warnings
	metrics        FontMetrics
	colors         ColorConverter
	maxFormDepth   int
	maskResolution int

	elements []model.Element
	depth    int
	active   map[*core.Stream]bool // forms being interpreted
	unknown  map[string]bool
}

// NewInterpreter creates an interpreter. A nil resolver treats every
// object as direct.
func NewInterpreter(r Resolver, opts ...Option) *Interpreter {
	if r == nil {
		r = direct{}
	}
	in := &Interpreter{
		resolver:       r,
		colors:         DeviceColors{},
		maxFormDepth:   DefaultMaxFormDepth,
		maskResolution: DefaultSoftMaskResolution,
		active:         make(map[*core.Stream]bool),
		unknown:        make(map[string]bool),
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.metrics == nil {
		in.metrics = StandardFonts(r)
	}
	return in
}

// Run interprets content and returns the elements it draws, in paint
// order. initial is the state at the start of the stream.
func (in *Interpreter) Run(content []byte, res Resources, initial graphicsstate.GraphicsState) []model.Element {
	in.elements = nil
	in.run(content, res, initial, nil)
	out := in.elements
	in.elements = nil
	return out
}

// frame is the interpretation state of one content stream: the page, a
// form XObject or a soft-mask group.
type frame struct {
	parent *frame
	data   []byte
	res    Resources
	stack  *graphicsstate.Stack
	path   *graphicsstate.Path

	// pending clip from W or W*, applied by the next painting operator
	clip     bool
	clipRule graphicsstate.FillRule

	fonts map[string]Font

	// union of text shown in a clipping render mode since BT
	textClip    model.BBox
	textClipped bool

	compat int // BX nesting
}

func (in *Interpreter) run(content []byte, res Resources, initial graphicsstate.GraphicsState, parent *frame) {
	f := &frame{
		parent: parent,
		data:   content,
		res:    res,
		stack:  graphicsstate.NewStack(initial),
		path:   graphicsstate.NewPath(),
		fonts:  make(map[string]Font),
	}
	p := NewParser(content)
	p.SetWarnings(in.warnings)
	for {
		op, ok := p.Next()
		if !ok {
			break
		}
		in.execute(f, op)
	}
	if d := f.stack.Depth(); d > 0 {
		in.warnAt(f, int64(len(content)), "%d q without matching Q at end of stream", d)
		f.stack.Unwind(0)
	}
}

func (in *Interpreter) warnAt(f *frame, offset int64, format string, args ...interface{}) {
	in.warnings.AddAt("content", f.data, offset, format, args...)
}

func (in *Interpreter) resolve(obj core.Object) core.Object {
	if obj == nil {
		return nil
	}
	out, err := in.resolver.Resolve(obj)
	if err != nil {
		return nil
	}
	return out
}

// arity is the operand count of operators that take a fixed number.
var arity = map[string]int{
	"cm": 6, "w": 1, "J": 1, "j": 1, "M": 1, "d": 2, "ri": 1, "i": 1, "gs": 1,
	"m": 2, "l": 2, "c": 6, "v": 4, "y": 4, "re": 4,
	"CS": 1, "cs": 1, "G": 1, "g": 1, "RG": 3, "rg": 3, "K": 4, "k": 4,
	"Tc": 1, "Tw": 1, "Tz": 1, "TL": 1, "Tf": 2, "Tr": 1, "Ts": 1,
	"Td": 2, "TD": 2, "Tm": 6, "Tj": 1, "TJ": 1, "'": 1, "\"": 3,
	"Do": 1, "sh": 1, "BMC": 1, "BDC": 2, "MP": 1, "DP": 2, "d0": 2, "d1": 6,
}

// operators without a fixed operand count
var variadic = map[string]bool{
	"q": true, "Q": true, "h": true, "n": true, "W": true, "W*": true,
	"S": true, "s": true, "f": true, "F": true, "f*": true,
	"B": true, "B*": true, "b": true, "b*": true,
	"SC": true, "SCN": true, "sc": true, "scn": true,
	"BT": true, "ET": true, "T*": true, "BI": true,
	"EMC": true, "BX": true, "EX": true,
}

func (in *Interpreter) execute(f *frame, op Operation) {
	operands := op.Operands
	if n, ok := arity[op.Operator]; ok {
		if len(operands) < n {
			in.warnAt(f, op.Offset, "%s needs %d operands, got %d; skipped", op.Operator, n, len(operands))
			return
		}
		// extra operands belong to nothing; keep those nearest the operator
		operands = operands[len(operands)-n:]
	} else if !variadic[op.Operator] {
		if f.compat == 0 && !in.unknown[op.Operator] {
			in.unknown[op.Operator] = true
			in.warnAt(f, op.Offset, "unknown operator %q ignored", op.Operator)
		}
		return
	}

	gs := f.stack.Current()
	switch op.Operator {
	// Graphics state operators
	case "q":
		f.stack.Save()
	case "Q":
		if !f.stack.Restore() {
			in.warnAt(f, op.Offset, "Q without matching q")
		}
	case "cm":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.Transform(model.Matrix(v))
		}
	case "w":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.SetLineWidth(v[0])
		}
	case "J":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.LineCap = graphicsstate.LineCap(v[0])
		}
	case "j":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.LineJoin = graphicsstate.LineJoin(v[0])
		}
	case "M":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.MiterLimit = v[0]
		}
	case "d":
		arr, ok1 := operands[0].(core.Array)
		phase, ok2 := core.ToFloat(operands[1])
		dash, ok3 := arr.Floats()
		if !ok1 || !ok2 || !ok3 {
			in.warnAt(f, op.Offset, "invalid dash pattern; skipped")
			return
		}
		gs.SetDash(dash, phase)
	case "ri":
		if n, ok := in.name(f, op, operands[0]); ok {
			gs.RenderingIntent = n
		}
	case "i":
		if v, ok := in.numbers(f, op, operands); ok {
			gs.Flatness = v[0]
		}
	case "gs":
		if n, ok := in.name(f, op, operands[0]); ok {
			in.extGState(f, op, n)
		}

	// Path construction operators
	case "m":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.MoveTo(v[0], v[1])
		}
	case "l":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.LineTo(v[0], v[1])
		}
	case "c":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.CurveToV(v[0], v[1], v[2], v[3])
		}
	case "y":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.CurveToY(v[0], v[1], v[2], v[3])
		}
	case "h":
		f.path.ClosePath()
	case "re":
		if v, ok := in.numbers(f, op, operands); ok {
			f.path.Rectangle(v[0], v[1], v[2], v[3])
		}

	// Path painting operators
	case "S":
		in.paint(f, graphicsstate.PaintStroke, graphicsstate.NonZero, false)
	case "s":
		in.paint(f, graphicsstate.PaintStroke, graphicsstate.NonZero, true)
	case "f", "F":
		in.paint(f, graphicsstate.PaintFill, graphicsstate.NonZero, false)
	case "f*":
		in.paint(f, graphicsstate.PaintFill, graphicsstate.EvenOdd, false)
	case "B":
		in.paint(f, graphicsstate.PaintFill|graphicsstate.PaintStroke, graphicsstate.NonZero, false)
	case "B*":
		in.paint(f, graphicsstate.PaintFill|graphicsstate.PaintStroke, graphicsstate.EvenOdd, false)
	case "b":
		in.paint(f, graphicsstate.PaintFill|graphicsstate.PaintStroke, graphicsstate.NonZero, true)
	case "b*":
		in.paint(f, graphicsstate.PaintFill|graphicsstate.PaintStroke, graphicsstate.EvenOdd, true)
	case "n":
		in.paint(f, 0, graphicsstate.NonZero, false)
	case "W":
		f.clip, f.clipRule = true, graphicsstate.NonZero
	case "W*":
		f.clip, f.clipRule = true, graphicsstate.EvenOdd

	// Color operators
	case "CS", "cs":
		in.setColorSpace(f, op, operands[0], op.Operator == "CS")
	case "SC", "SCN", "sc", "scn":
		in.setColor(f, op, operands, op.Operator == "SC" || op.Operator == "SCN")
	case "G", "g":
		in.setDeviceColor(f, op, operands, "DeviceGray", op.Operator == "G")
	case "RG", "rg":
		in.setDeviceColor(f, op, operands, "DeviceRGB", op.Operator == "RG")
	case "K", "k":
		in.setDeviceColor(f, op, operands, "DeviceCMYK", op.Operator == "K")

	// Text operators
	case "BT", "ET", "Tc", "Tw", "Tz", "TL", "Tf", "Tr", "Ts",
		"Td", "TD", "Tm", "T*", "Tj", "TJ", "'", "\"":
		in.text(f, op, operands)

	// XObjects and inline images
	case "Do":
		if n, ok := in.name(f, op, operands[0]); ok {
			in.xobject(f, op, n)
		}
	case "BI":
		if op.Image != nil {
			in.inlineImage(f, op)
		}

	case "BX":
		f.compat++
	case "EX":
		if f.compat > 0 {
			f.compat--
		}

	// Marked content, shading fills and Type3 glyph metrics draw nothing
	// here.
	case "BMC", "BDC", "EMC", "MP", "DP", "sh", "d0", "d1":
	}
}

// numbers converts operands that must all be numbers.
func (in *Interpreter) numbers(f *frame, op Operation, operands []core.Object) ([]float64, bool) {
	out := make([]float64, len(operands))
	for i, o := range operands {
		v, ok := core.ToFloat(o)
		if !ok {
			in.warnAt(f, op.Offset, "%s operand %d is %s, not a number; skipped", op.Operator, i+1, o.Type())
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (in *Interpreter) name(f *frame, op Operation, o core.Object) (string, bool) {
	n, ok := o.(core.Name)
	if !ok {
		in.warnAt(f, op.Offset, "%s operand is %s, not a name; skipped", op.Operator, o.Type())
		return "", false
	}
	return string(n), true
}

// paint ends the current path: it emits a Path element when the path is
// painted and visible, then applies a pending clip.
func (in *Interpreter) paint(f *frame, paint graphicsstate.Paint, rule graphicsstate.FillRule, closePath bool) {
	if closePath {
		f.path.ClosePath()
	}
	gs := f.stack.Current()
	if paint != 0 {
		if box, ok := pathBox(f.path, gs, paint); ok && gs.Visible(box) {
			in.elements = append(in.elements, &Path{
				Path:        f.path,
				Paint:       paint,
				Rule:        rule,
				State:       f.stack.Snapshot(),
				FillColor:   in.colors.RGB(gs.Fill),
				StrokeColor: in.colors.RGB(gs.Stroke),
				BBox:        box,
				Z:           len(in.elements),
			})
		}
	}
	if f.clip {
		// a clip path with nothing drawable clips everything away
		box, _ := f.path.Bounds(gs.CTM)
		gs.IntersectClip(box)
		f.clip = false
	}
	f.path = graphicsstate.NewPath()
}

// pathBox returns the page-space bounds of a painted path, grown by half
// the line width when it is stroked.
func pathBox(p *graphicsstate.Path, gs *graphicsstate.GraphicsState, paint graphicsstate.Paint) (model.BBox, bool) {
	box, ok := p.Bounds(gs.CTM)
	if !ok {
		return model.BBox{}, false
	}
	if paint.Strokes() {
		box = box.Expand(gs.LineWidth * gs.CTM.ScaleFactor() / 2)
	}
	return box, true
}
