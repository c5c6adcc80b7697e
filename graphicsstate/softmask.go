package graphicsstate

import (
	"math"

	"github.com/tsawler/pdfcore/model"
)

// SoftMaskKind is the /S entry of a soft-mask dictionary.
type SoftMaskKind int

const (
	// SoftMaskLuminosity derives opacity from the luminance of the
	// rendered group.
	SoftMaskLuminosity SoftMaskKind = iota
	// SoftMaskAlpha derives opacity from the group's coverage.
	SoftMaskAlpha
)

func (k SoftMaskKind) String() string {
	if k == SoftMaskAlpha {
		return "Alpha"
	}
	return "Luminosity"
}

// SoftMask is a rasterized soft mask. Data holds Width x Height opacity
// values, row 0 at the top of BBox. BBox is in the mask group's own space
// and Matrix maps that space to page space (the group /Matrix
// concatenated with the CTM in effect when the mask was set).
type SoftMask struct {
	Kind   SoftMaskKind
	Width  int
	Height int
	Data   []byte
	BBox   model.BBox
	Matrix model.Matrix

	// Outside is the opacity outside BBox: the backdrop luminance for
	// luminosity masks, zero for alpha masks.
	Outside byte
}

// NewSoftMask allocates a mask of the given resolution with every sample
// set to fill.
func NewSoftMask(kind SoftMaskKind, width, height int, bbox model.BBox, m model.Matrix, fill byte) *SoftMask {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = fill
	}
	return &SoftMask{Kind: kind, Width: width, Height: height, Data: data, BBox: bbox, Matrix: m, Outside: fill}
}

// GroupToPixel maps the group space of the mask to its sample grid.
func (m *SoftMask) GroupToPixel() model.Matrix {
	sx := float64(m.Width) / m.BBox.Width
	sy := float64(m.Height) / m.BBox.Height
	return model.Translate(-m.BBox.X, -m.BBox.Top()).Multiply(model.Scale(sx, -sy))
}

// At returns the opacity in [0, 1] at a page-space point.
func (m *SoftMask) At(p model.Point) float64 {
	if m == nil {
		return 1
	}
	inv, ok := m.Matrix.Invert()
	if !ok || m.Width == 0 || m.Height == 0 || !m.BBox.IsValid() {
		return float64(m.Outside) / 255
	}
	q := inv.Multiply(m.GroupToPixel()).Transform(p)
	x, y := int(math.Floor(q.X)), int(math.Floor(q.Y))
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return float64(m.Outside) / 255
	}
	return float64(m.Data[y*m.Width+x]) / 255
}

// Sample returns the opacity at p, a point in the pixel space of a target
// buffer that toPixel maps page space into. The point is taken back
// through the inverse of toPixel and then of the mask's own matrix.
func (m *SoftMask) Sample(p model.Point, toPixel model.Matrix) float64 {
	if m == nil {
		return 1
	}
	inv, ok := toPixel.Invert()
	if !ok {
		return float64(m.Outside) / 255
	}
	return m.At(inv.Transform(p))
}
