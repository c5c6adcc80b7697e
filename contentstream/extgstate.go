package contentstream

import (
	"image"
	"math"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
	"github.com/tsawler/pdfcore/pages"
)

// extGState applies a graphics state parameter dictionary (gs operator).
func (in *Interpreter) extGState(f *frame, op Operation, name string) {
	var obj core.Object
	if f.res != nil {
		obj, _ = f.res.Lookup("ExtGState", name)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		in.warnAt(f, op.Offset, "ExtGState /%s not found", name)
		return
	}
	gs := f.stack.Current()
	for _, key := range dict.Keys() {
		v := in.resolve(dict.Get(key))
		switch key {
		case "LW":
			if n, ok := core.ToFloat(v); ok {
				gs.SetLineWidth(n)
			}
		case "LC":
			if n, ok := v.(core.Int); ok {
				gs.LineCap = graphicsstate.LineCap(n)
			}
		case "LJ":
			if n, ok := v.(core.Int); ok {
				gs.LineJoin = graphicsstate.LineJoin(n)
			}
		case "ML":
			if n, ok := core.ToFloat(v); ok {
				gs.MiterLimit = n
			}
		case "D":
			arr, _ := v.(core.Array)
			dash, ok1 := in.resolve(arr.Get(0)).(core.Array)
			phase, ok2 := core.ToFloat(in.resolve(arr.Get(1)))
			if values, ok3 := dash.Floats(); ok1 && ok2 && ok3 {
				gs.SetDash(values, phase)
			}
		case "CA":
			if n, ok := core.ToFloat(v); ok {
				gs.StrokeAlpha = clamp01(n)
			}
		case "ca":
			if n, ok := core.ToFloat(v); ok {
				gs.FillAlpha = clamp01(n)
			}
		case "BM":
			if arr, ok := v.(core.Array); ok {
				v = arr.Get(0)
			}
			if n, ok := v.(core.Name); ok {
				gs.BlendMode = string(n)
			}
		case "RI":
			if n, ok := v.(core.Name); ok {
				gs.RenderingIntent = string(n)
			}
		case "FL":
			if n, ok := core.ToFloat(v); ok {
				gs.Flatness = n
			}
		case "Font":
			arr, _ := v.(core.Array)
			size, ok := core.ToFloat(in.resolve(arr.Get(1)))
			if !ok || !in.setFontRef(f, arr.Get(0), size) {
				in.warnAt(f, op.Offset, "ExtGState /%s has an invalid /Font", name)
			}
		case "SMask":
			if mask, ok := in.softMask(f, op, v); ok {
				gs.SoftMask = mask
			}
		}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// softMask builds the mask of an /SMask entry: nil for /None, otherwise
// the /G group rendered into a byte buffer.
func (in *Interpreter) softMask(f *frame, op Operation, obj core.Object) (*graphicsstate.SoftMask, bool) {
	if n, ok := obj.(core.Name); ok {
		if n != "None" {
			in.warnAt(f, op.Offset, "invalid /SMask /%s", n)
			return nil, false
		}
		return nil, true
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		in.warnAt(f, op.Offset, "/SMask is %s, not a dictionary", typeOf(obj))
		return nil, false
	}
	kind := graphicsstate.SoftMaskLuminosity
	if s, _ := in.resolve(dict.Get("S")).(core.Name); s == "Alpha" {
		kind = graphicsstate.SoftMaskAlpha
	}
	group, ok := in.resolve(dict.Get("G")).(*core.Stream)
	if !ok {
		in.warnAt(f, op.Offset, "soft mask has no /G group")
		return nil, false
	}
	bbox, ok := in.rect(group.Dict.Get("BBox"))
	if !ok {
		in.warnAt(f, op.Offset, "soft mask group has no valid /BBox")
		return nil, false
	}
	if in.active[group] || in.depth >= in.maxFormDepth {
		in.warnAt(f, op.Offset, "soft mask group %s is nested too deeply; skipped", group.Ref)
		return nil, false
	}
	data, err := group.Decode()
	if err != nil {
		in.warnAt(f, op.Offset, "soft mask group %s: %v", group.Ref, err)
		return nil, false
	}

	groupMatrix := model.Identity()
	if m, ok := in.matrix(group.Dict.Get("Matrix")); ok {
		groupMatrix = m
	}
	w, h := maskSize(bbox, in.maskResolution)
	var backdrop byte
	if kind == graphicsstate.SoftMaskLuminosity {
		backdrop = in.backdrop(f, dict, group)
	}
	mask := graphicsstate.NewSoftMask(kind, w, h, bbox, groupMatrix.Multiply(f.stack.Current().CTM), backdrop)

	res := f.res
	if d, ok := in.resolve(group.Dict.Get("Resources")).(core.Dict); ok {
		res = pages.NewResources(in.resolver, d)
	}
	initial := graphicsstate.NewGraphicsState()
	initial.IntersectClip(bbox)

	// the group is drawn in its own space by a separate run
	sub := *in
	sub.elements = nil
	sub.depth++
	in.active[group] = true
	sub.run(data, res, initial, nil)
	delete(in.active, group)

	toPixel := mask.GroupToPixel()
	for _, el := range sub.elements {
		switch e := el.(type) {
		case *Path:
			if e.Paint.Fills() {
				p := *e
				p.Paint = graphicsstate.PaintFill
				composite(mask, p.Rasterize(w, h, toPixel), e.FillColor)
			}
			if e.Paint.Strokes() {
				p := *e
				p.Paint = graphicsstate.PaintStroke
				composite(mask, p.Rasterize(w, h, toPixel), e.StrokeColor)
			}
		case *Text:
			// glyph shapes are not available; the run's box stands in
			path := graphicsstate.NewPath()
			path.Rectangle(e.BBox.X, e.BBox.Y, e.BBox.Width, e.BBox.Height)
			state := e.State
			state.CTM = model.Identity()
			cov := graphicsstate.Rasterize(path, graphicsstate.NonZero, graphicsstate.PaintFill, state, w, h, toPixel)
			composite(mask, cov, e.Color)
		}
	}
	return mask, true
}

// maskSize scales a group bounding box so its longer side has res
// samples.
func maskSize(bbox model.BBox, res int) (int, int) {
	if bbox.Width >= bbox.Height {
		return res, max(1, int(math.Round(float64(res)*bbox.Height/bbox.Width)))
	}
	return max(1, int(math.Round(float64(res)*bbox.Width/bbox.Height))), res
}

// backdrop returns the luminance of the /BC backdrop in the group's color
// space; black when absent.
func (in *Interpreter) backdrop(f *frame, dict core.Dict, group *core.Stream) byte {
	bc, ok := in.resolve(dict.Get("BC")).(core.Array)
	if !ok {
		return 0
	}
	v, ok := bc.Floats()
	if !ok {
		return 0
	}
	space := ""
	if g, ok := in.resolve(group.Dict.Get("Group")).(core.Dict); ok {
		if family, _, ok := in.colorSpace(f, g.Get("CS")); ok {
			space = family
		}
	}
	c := in.colors.RGB(graphicsstate.Color{Space: space, Components: v})
	return byte(math.Round(c.Gray() * 255))
}

// composite paints coverage onto the mask. Luminosity masks take the
// luminance of the paint color, alpha masks the coverage itself.
func composite(mask *graphicsstate.SoftMask, cov *image.Alpha, color model.Color) {
	value := 255.0
	if mask.Kind == graphicsstate.SoftMaskLuminosity {
		value = color.Gray() * 255
	}
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			a := float64(cov.Pix[y*cov.Stride+x]) / 255
			if a == 0 {
				continue
			}
			i := y*mask.Width + x
			mask.Data[i] = byte(math.Round(float64(mask.Data[i])*(1-a) + value*a))
		}
	}
}

func typeOf(obj core.Object) string {
	if obj == nil {
		return "missing"
	}
	return obj.Type().String()
}
