package font

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/pdfcore/core"
)

// DefaultWidth is the glyph width, in thousandths of an em, used when a
// font gives none.
const DefaultWidth = 500.0

// Resolver resolves indirect references inside font dictionaries.
type Resolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// Font holds what text interpretation needs from a font resource: how to
// split shown strings into codes, the width of each code and its text.
// Glyph outlines are not read.
type Font struct {
	BaseFont string
	Subtype  string
	Encoding string // base encoding or CMap name

	composite bool
	vertical  bool

	// simple fonts
	firstChar int
	widths    []float64
	standard  *[95]float64
	missing   float64
	table     *Encoding
	scale     float64 // glyph space to thousandths of an em (Type3)

	// composite fonts
	cmap      *CMap // embedded encoding CMap
	identity  bool
	cidWidths []widthRange
	dw        float64

	toUnicode *CMap
}

// Default returns the font used when a font resource is missing:
// Helvetica with WinAnsiEncoding.
func Default() *Font {
	table, _ := BaseEncoding(WinAnsiEncoding)
	return &Font{
		BaseFont: "Helvetica",
		Subtype:  "Type1",
		Encoding: WinAnsiEncoding,
		standard: &helveticaWidths,
		missing:  DefaultWidth,
		table:    table,
		scale:    1,
	}
}

// Load reads a font dictionary. Malformed entries fall back to defaults;
// loading never fails.
func Load(dict core.Dict, r Resolver) *Font {
	f := &Font{missing: DefaultWidth, scale: 1}
	if dict == nil {
		return Default()
	}
	base, _ := dict.GetName("BaseFont")
	subtype, _ := dict.GetName("Subtype")
	f.BaseFont = stripSubset(string(base))
	f.Subtype = string(subtype)

	if s, ok := resolve(r, dict.Get("ToUnicode")).(*core.Stream); ok {
		if data, err := s.Decode(); err == nil {
			f.toUnicode = ParseCMap(data)
		}
	}

	if f.Subtype == "Type0" {
		f.loadComposite(dict, r)
		return f
	}
	f.loadSimple(dict, r)
	return f
}

// stripSubset removes a subset tag such as "ABCDEF+".
func stripSubset(name string) string {
	if len(name) > 7 && name[6] == '+' && strings.ToUpper(name[:6]) == name[:6] {
		return name[7:]
	}
	return name
}

func resolve(r Resolver, obj core.Object) core.Object {
	if obj == nil || r == nil {
		return obj
	}
	out, err := r.Resolve(obj)
	if err != nil {
		return nil
	}
	return out
}

func number(r Resolver, obj core.Object) (float64, bool) {
	return core.ToFloat(resolve(r, obj))
}

func (f *Font) loadSimple(dict core.Dict, r Resolver) {
	if first, ok := number(r, dict.Get("FirstChar")); ok {
		f.firstChar = int(first)
	}
	if arr, ok := resolve(r, dict.Get("Widths")).(core.Array); ok {
		f.widths = make([]float64, len(arr))
		for i, w := range arr {
			f.widths[i], _ = number(r, w)
		}
	} else {
		f.standard = standardWidths[f.BaseFont]
	}
	if desc, ok := resolve(r, dict.Get("FontDescriptor")).(core.Dict); ok {
		if mw, ok := number(r, desc.Get("MissingWidth")); ok && mw > 0 {
			f.missing = mw
		}
	}
	if f.Subtype == "Type3" {
		if fm, ok := resolve(r, dict.Get("FontMatrix")).(core.Array); ok && len(fm) == 6 {
			if a, ok := number(r, fm[0]); ok && a != 0 {
				f.scale = a * 1000
			}
		}
	}

	f.Encoding = StandardEncoding
	if f.BaseFont == "Symbol" || f.BaseFont == "ZapfDingbats" {
		f.Encoding = ""
	}
	var diffs core.Array
	switch enc := resolve(r, dict.Get("Encoding")).(type) {
	case core.Name:
		f.Encoding = string(enc)
	case core.Dict:
		if name, ok := enc.GetName("BaseEncoding"); ok {
			f.Encoding = string(name)
		}
		diffs, _ = resolve(r, enc.Get("Differences")).(core.Array)
	}
	table, ok := BaseEncoding(f.Encoding)
	if !ok {
		table = &Encoding{}
	}
	if diffs != nil {
		table.applyDifferences(diffs)
	}
	f.table = table
}

// IsComposite reports whether the font is a Type0 font with multi-byte
// codes.
func (f *Font) IsComposite() bool { return f.composite }

// IsVertical reports whether the font writes top to bottom (Identity-V or
// a -V CMap).
func (f *Font) IsVertical() bool { return f.vertical }

// Name returns the base font name without a subset tag.
func (f *Font) Name() string { return f.BaseFont }

// NextCode returns the first character code of data and its length in
// bytes.
func (f *Font) NextCode(data []byte) (code uint32, n int) {
	if len(data) == 0 {
		return 0, 0
	}
	if !f.composite {
		return uint32(data[0]), 1
	}
	if f.cmap.HasCodespace() {
		return f.cmap.NextCode(data, 2)
	}
	if f.toUnicode.HasCodespace() && !f.identity {
		return f.toUnicode.NextCode(data, 2)
	}
	if len(data) < 2 {
		return uint32(data[0]), 1
	}
	return uint32(data[0])<<8 | uint32(data[1]), 2
}

// IsSpace reports whether word spacing applies to a code: only the
// single-byte code 32 qualifies.
func (f *Font) IsSpace(code uint32, n int) bool {
	return n == 1 && code == 32
}

// Width returns the horizontal displacement of a code in thousandths of
// an em.
func (f *Font) Width(code uint32) float64 {
	if f.composite {
		return f.cidWidth(f.cid(code))
	}
	i := int(code) - f.firstChar
	if f.widths != nil {
		if i >= 0 && i < len(f.widths) {
			return f.widths[i] * f.scale
		}
		return f.missing
	}
	if f.standard != nil && code >= 32 && code <= 126 {
		return f.standard[code-32]
	}
	return f.missing
}

// Decode returns the text of a shown string: through /ToUnicode when it
// maps a code, the simple-font encoding otherwise. The result is
// NFC-normalized.
func (f *Font) Decode(data []byte) string {
	var sb strings.Builder
	for len(data) > 0 {
		code, n := f.NextCode(data)
		if s, ok := f.toUnicode.Unicode(code); ok {
			sb.WriteString(s)
		} else if !f.composite {
			r := f.table[code]
			if r == 0 {
				r = rune(code)
			}
			sb.WriteRune(r)
		} else if f.identity || f.cmap == nil {
			// no ToUnicode: CIDs rarely equal code points, but it is the
			// best guess available
			sb.WriteRune(rune(f.cid(code)))
		}
		data = data[n:]
	}
	return norm.NFC.String(sb.String())
}
