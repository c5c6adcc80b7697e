package model

// ElementType represents the type of page element
type ElementType int

const (
	ElementTypeUnknown ElementType = iota
	ElementTypePath
	ElementTypeText
	ElementTypeImage
)

func (et ElementType) String() string {
	switch et {
	case ElementTypePath:
		return "Path"
	case ElementTypeText:
		return "Text"
	case ElementTypeImage:
		return "Image"
	default:
		return "Unknown"
	}
}

// Element is the interface for all drawn primitives of a page. ZIndex is
// the position in paint order.
type Element interface {
	Type() ElementType
	BoundingBox() BBox
	ZIndex() int
}

// TextElement is an interface for elements containing text
type TextElement interface {
	Element
	GetText() string
}

// ImageFormat is the encoding of an image element's bytes.
type ImageFormat int

const (
	ImageFormatRaw ImageFormat = iota // decoded samples
	ImageFormatJPEG
	ImageFormatJPEG2000
	ImageFormatJBIG2
)

func (f ImageFormat) String() string {
	switch f {
	case ImageFormatJPEG:
		return "JPEG"
	case ImageFormatJPEG2000:
		return "JPEG2000"
	case ImageFormatJBIG2:
		return "JBIG2"
	default:
		return "Raw"
	}
}

// Color represents an RGB color
type Color struct {
	R, G, B uint8
}

// Gray returns the luminance of c in [0, 1].
func (c Color) Gray() float64 {
	return (0.3*float64(c.R) + 0.59*float64(c.G) + 0.11*float64(c.B)) / 255
}
