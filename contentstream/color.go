package contentstream

import (
	"math"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
)

// ColorConverter maps a color, tagged with its color space, to display
// RGB.
type ColorConverter interface {
	RGB(c graphicsstate.Color) model.Color
}

// DeviceColors is the default ColorConverter. It converts by component
// count: one component is gray, three are RGB and four are CMYK. Patterns
// and anything else come out black.
type DeviceColors struct{}

// RGB converts c.
func (DeviceColors) RGB(c graphicsstate.Color) model.Color {
	v := c.Components
	switch len(v) {
	case 1:
		g := floatToUint8(v[0])
		return model.Color{R: g, G: g, B: g}
	case 3:
		return model.Color{R: floatToUint8(v[0]), G: floatToUint8(v[1]), B: floatToUint8(v[2])}
	case 4:
		r, g, b := cmykToRGB(v[0], v[1], v[2], v[3])
		return model.Color{R: floatToUint8(r), G: floatToUint8(g), B: floatToUint8(b)}
	}
	return model.Color{}
}

// cmykToRGB converts CMYK to RGB (approximate conversion)
func cmykToRGB(c, m, y, k float64) (r, g, b float64) {
	r = (1 - c) * (1 - k)
	g = (1 - m) * (1 - k)
	b = (1 - y) * (1 - k)
	return
}

// floatToUint8 converts a float64 color value (0.0-1.0) to uint8 (0-255)
func floatToUint8(f float64) uint8 {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return uint8(math.Round(f * 255))
}

var deviceSpaces = map[string]struct {
	family string
	n      int
}{
	"DeviceGray": {"DeviceGray", 1},
	"G":          {"DeviceGray", 1},
	"DeviceRGB":  {"DeviceRGB", 3},
	"RGB":        {"DeviceRGB", 3},
	"DeviceCMYK": {"DeviceCMYK", 4},
	"CMYK":       {"DeviceCMYK", 4},
	"Pattern":    {"Pattern", 0},
}

// colorSpace resolves a color space operand or entry to its family name
// and component count. Names other than the device spaces are looked up
// in the /ColorSpace resources.
func (in *Interpreter) colorSpace(f *frame, obj core.Object) (string, int, bool) {
	return in.colorSpaceDepth(f, obj, 0)
}

func (in *Interpreter) colorSpaceDepth(f *frame, obj core.Object, depth int) (string, int, bool) {
	if depth > 4 {
		return "", 0, false
	}
	switch v := in.resolve(obj).(type) {
	case core.Name:
		if d, ok := deviceSpaces[string(v)]; ok {
			return d.family, d.n, true
		}
		if f == nil || f.res == nil {
			return "", 0, false
		}
		res, ok := f.res.Lookup("ColorSpace", string(v))
		if !ok {
			return "", 0, false
		}
		return in.colorSpaceDepth(f, res, depth+1)
	case core.Array:
		family, ok := v.GetName(0)
		if !ok {
			return "", 0, false
		}
		switch family {
		case "ICCBased":
			n := 3
			if s, ok := in.resolve(v.Get(1)).(*core.Stream); ok {
				if c, ok := in.resolve(s.Dict.Get("N")).(core.Int); ok && c > 0 {
					n = int(c)
				} else if _, alt, ok := in.colorSpaceDepth(f, s.Dict.Get("Alternate"), depth+1); ok {
					n = alt
				}
			}
			return "ICCBased", n, true
		case "Indexed", "I", "Separation":
			if family == "I" {
				family = "Indexed"
			}
			return string(family), 1, true
		case "DeviceN":
			names, _ := in.resolve(v.Get(1)).(core.Array)
			return "DeviceN", max(1, len(names)), true
		case "CalGray":
			return "CalGray", 1, true
		case "CalRGB", "Lab":
			return string(family), 3, true
		case "Pattern":
			return "Pattern", 0, true
		}
		if d, ok := deviceSpaces[string(family)]; ok {
			return d.family, d.n, true
		}
	}
	return "", 0, false
}

// setColorSpace handles CS and cs: the color resets to the space's
// initial value.
func (in *Interpreter) setColorSpace(f *frame, op Operation, obj core.Object, stroke bool) {
	family, n, ok := in.colorSpace(f, obj)
	if !ok {
		in.warnAt(f, op.Offset, "unknown color space %s; using DeviceGray", obj)
		family, n = "DeviceGray", 1
	}
	gs := f.stack.Current()
	c := graphicsstate.InitialColor(family, n)
	if stroke {
		gs.SetStrokeColor(c)
	} else {
		gs.SetFillColor(c)
	}
}

// setColor handles SC, SCN, sc and scn in the current color space. A
// trailing name selects a pattern.
func (in *Interpreter) setColor(f *frame, op Operation, operands []core.Object, stroke bool) {
	gs := f.stack.Current()
	c := gs.Fill
	if stroke {
		c = gs.Stroke
	}
	pattern := ""
	if n := len(operands); n > 0 {
		if name, ok := operands[n-1].(core.Name); ok {
			pattern = string(name)
			operands = operands[:n-1]
		}
	}
	v, ok := in.numbers(f, op, operands)
	if !ok {
		return
	}
	if want := len(c.Components); c.Space != "Pattern" && want > 0 && len(v) != want {
		if len(v) < want {
			in.warnAt(f, op.Offset, "%s needs %d components for %s, got %d; skipped", op.Operator, want, c.Space, len(v))
			return
		}
		v = v[len(v)-want:]
	}
	next := graphicsstate.Color{Space: c.Space, Components: v, Pattern: pattern}
	if stroke {
		gs.SetStrokeColor(next)
	} else {
		gs.SetFillColor(next)
	}
}

// setDeviceColor handles G, g, RG, rg, K and k, which also select the
// device color space.
func (in *Interpreter) setDeviceColor(f *frame, op Operation, operands []core.Object, space string, stroke bool) {
	v, ok := in.numbers(f, op, operands)
	if !ok {
		return
	}
	c := graphicsstate.Color{Space: space, Components: v}
	gs := f.stack.Current()
	if stroke {
		gs.SetStrokeColor(c)
	} else {
		gs.SetFillColor(c)
	}
}
