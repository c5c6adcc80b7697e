package contentstream

import (
	"image"

	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
)

// Path is a painted path. Path holds the geometry in user space; State.CTM
// maps it to page space.
type Path struct {
	Path  *graphicsstate.Path
	Paint graphicsstate.Paint
	Rule  graphicsstate.FillRule
	State graphicsstate.GraphicsState

	// FillColor and StrokeColor are the state colors converted to RGB.
	FillColor   model.Color
	StrokeColor model.Color

	BBox model.BBox // page space, stroke width included
	Z    int
}

func (p *Path) Type() model.ElementType { return model.ElementTypePath }
func (p *Path) BoundingBox() model.BBox { return p.BBox }
func (p *Path) ZIndex() int { return p.Z }
func (p *Path) Fills() bool { return p.Paint.Fills() }
func (p *Path) Strokes() bool { return p.Paint.Strokes() }
func (p *Path) EvenOdd() bool { return p.Rule == graphicsstate.EvenOdd }
func (p *Path) Rectangle() (model.BBox, bool) { return p.Path.IsRectangle() }

// Rasterize renders the path into a width x height coverage buffer;
// toPixel maps page space to the buffer. Constant alpha, the soft mask
// and the clip of the path's state are applied.
func (p *Path) Rasterize(width, height int, toPixel model.Matrix) *image.Alpha {
	return graphicsstate.Rasterize(p.Path, p.Rule, p.Paint, p.State, width, height, toPixel)
}

// Text is one text-showing operation (Tj, TJ, ' or ").
type Text struct {
	Raw  []byte // the shown string bytes, TJ strings concatenated
	Text string // best-effort Unicode

	Font       string // font resource name
	BaseFont   string
	Size       float64 // Tf size
	RenderMode int
	Vertical   bool

	// Matrix is the text rendering matrix at the start of the run.
	Matrix model.Matrix
	State  graphicsstate.GraphicsState
	Color  model.Color

	BBox model.BBox
	Z    int
}

func (t *Text) Type() model.ElementType { return model.ElementTypeText }
func (t *Text) BoundingBox() model.BBox { return t.BBox }
func (t *Text) ZIndex() int { return t.Z }
func (t *Text) GetText() string { return t.Text }

// FontSize returns the rendered size: the Tf size scaled by the text
// matrix and CTM.
func (t *Text) FontSize() float64 {
	return t.State.GetEffectiveFontSize()
}

// Image is an image XObject or an inline image. Data holds decoded samples
// when Format is model.ImageFormatRaw and the still-encoded bytes of the
// codec named by Filter otherwise.
type Image struct {
	Name   string // XObject resource name; empty for inline images
	Inline bool

	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       string
	ImageMask        bool

	Data   []byte
	Format model.ImageFormat
	Filter string

	State graphicsstate.GraphicsState
	BBox  model.BBox // the unit square under the CTM
	Z     int
}

func (i *Image) Type() model.ElementType { return model.ElementTypeImage }
func (i *Image) BoundingBox() model.BBox { return i.BBox }
func (i *Image) ZIndex() int { return i.Z }

var (
	_ model.Element     = (*Path)(nil)
	_ model.TextElement = (*Text)(nil)
	_ model.Element     = (*Image)(nil)
)
