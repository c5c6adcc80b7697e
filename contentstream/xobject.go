package contentstream

import (
	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/internal/filters"
	"github.com/tsawler/pdfcore/model"
	"github.com/tsawler/pdfcore/pages"
)

// unitSquare is the image space every image is painted into.
var unitSquare = model.BBox{X: 0, Y: 0, Width: 1, Height: 1}

// xobject handles Do.
func (in *Interpreter) xobject(f *frame, op Operation, name string) {
	var obj core.Object
	if f.res != nil {
		obj, _ = f.res.Lookup("XObject", name)
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		in.warnAt(f, op.Offset, "XObject /%s not found", name)
		return
	}
	subtype, _ := in.resolve(stream.Dict.Get("Subtype")).(core.Name)
	switch subtype {
	case "Image":
		in.image(f, op, name, stream)
	case "Form":
		in.form(f, op, stream)
	case "PS":
	default:
		in.warnAt(f, op.Offset, "XObject /%s has unknown subtype %q", name, subtype)
	}
}

// form interprets a form XObject in a saved state with the form matrix
// concatenated and its bounding box clipped.
func (in *Interpreter) form(f *frame, op Operation, stream *core.Stream) {
	if in.depth >= in.maxFormDepth {
		in.warnAt(f, op.Offset, "form XObjects nested deeper than %d; skipped", in.maxFormDepth)
		return
	}
	if in.active[stream] {
		in.warnAt(f, op.Offset, "form XObject %s draws itself; skipped", stream.Ref)
		return
	}
	data, err := stream.Decode()
	if err != nil {
		in.warnAt(f, op.Offset, "form XObject %s: %v", stream.Ref, err)
		return
	}

	gs := f.stack.Snapshot()
	if m, ok := in.matrix(stream.Dict.Get("Matrix")); ok {
		gs.Transform(m)
	}
	if box, ok := in.rect(stream.Dict.Get("BBox")); ok {
		gs.IntersectClip(gs.CTM.TransformBBox(box))
	}

	res := f.res
	if dict, ok := in.resolve(stream.Dict.Get("Resources")).(core.Dict); ok {
		res = pages.NewResources(in.resolver, dict)
	}

	in.active[stream] = true
	in.depth++
	in.run(data, res, gs, f)
	in.depth--
	delete(in.active, stream)
}

// matrix reads a six-number array, such as a form /Matrix.
func (in *Interpreter) matrix(obj core.Object) (model.Matrix, bool) {
	arr, ok := in.resolve(obj).(core.Array)
	if !ok || len(arr) != 6 {
		return model.Matrix{}, false
	}
	v, ok := arr.Floats()
	if !ok {
		return model.Matrix{}, false
	}
	return model.Matrix(v), true
}

// rect reads a rectangle array [llx lly urx ury].
func (in *Interpreter) rect(obj core.Object) (model.BBox, bool) {
	arr, ok := in.resolve(obj).(core.Array)
	if !ok || len(arr) != 4 {
		return model.BBox{}, false
	}
	v, ok := arr.Floats()
	if !ok {
		return model.BBox{}, false
	}
	b := model.BBoxFromRect(v[0], v[1], v[2], v[3])
	return b, b.IsValid()
}

// image emits an image XObject.
func (in *Interpreter) image(f *frame, op Operation, name string, stream *core.Stream) {
	img := in.newImage(f, stream.Dict)
	if img == nil {
		return
	}
	img.Name = name
	in.decodeImage(f, op, img, stream)
	in.elements = append(in.elements, img)
}

// inlineImage emits the image of a BI operation.
func (in *Interpreter) inlineImage(f *frame, op Operation) {
	img := in.newImage(f, op.Image.Dict)
	if img == nil {
		return
	}
	img.Inline = true
	in.decodeImage(f, op, img, &core.Stream{Dict: op.Image.Dict, Data: op.Image.Data})
	in.elements = append(in.elements, img)
}

// newImage reads the image dictionary. It returns nil when the image
// cannot be seen through the clip.
func (in *Interpreter) newImage(f *frame, dict core.Dict) *Image {
	gs := f.stack.Current()
	box := gs.CTM.TransformBBox(unitSquare)
	if !gs.Visible(box) {
		return nil
	}
	img := &Image{
		State: f.stack.Snapshot(),
		BBox:  box,
		Z:     len(in.elements),
	}
	if v, ok := in.resolve(dict.Get("Width")).(core.Int); ok {
		img.Width = int(v)
	}
	if v, ok := in.resolve(dict.Get("Height")).(core.Int); ok {
		img.Height = int(v)
	}
	if v, ok := in.resolve(dict.Get("ImageMask")).(core.Bool); ok {
		img.ImageMask = bool(v)
	}
	if img.ImageMask {
		img.BitsPerComponent = 1
		return img
	}
	img.BitsPerComponent = 8
	if v, ok := in.resolve(dict.Get("BitsPerComponent")).(core.Int); ok {
		img.BitsPerComponent = int(v)
	}
	if cs := dict.Get("ColorSpace"); cs != nil {
		if family, _, ok := in.colorSpace(f, cs); ok {
			img.ColorSpace = family
		}
	}
	return img
}

// decodeImage runs the filter chain up to an image codec. Image codecs
// are left applied and named in Filter.
func (in *Interpreter) decodeImage(f *frame, op Operation, img *Image, stream *core.Stream) {
	data, kind, err := stream.DecodeImage()
	if err != nil {
		in.warnAt(f, op.Offset, "image %s: %v", imageLabel(img), err)
		return
	}
	img.Data = data
	switch kind {
	case filters.KindDCT:
		img.Format = model.ImageFormatJPEG
	case filters.KindJPX:
		img.Format = model.ImageFormatJPEG2000
	case filters.KindJBIG2:
		img.Format = model.ImageFormatJBIG2
	}
	if kind.IsImageCodec() {
		img.Filter = kind.String()
	}
}

func imageLabel(img *Image) string {
	if img.Inline {
		return "(inline)"
	}
	return "/" + img.Name
}
