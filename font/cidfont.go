package font

import (
	"strings"

	"github.com/tsawler/pdfcore/core"
)

// widthRange is one entry of a CIDFont /W array: either one width for
// every CID in [first, last] or one width per CID starting at first.
type widthRange struct {
	first, last uint32
	width       float64
	widths      []float64
}

// loadComposite reads a Type0 font: the /Encoding CMap and the widths of
// its descendant CIDFont.
func (f *Font) loadComposite(dict core.Dict, r Resolver) {
	f.composite = true
	f.dw = 1000

	switch enc := resolve(r, dict.Get("Encoding")).(type) {
	case core.Name:
		f.Encoding = string(enc)
	case *core.Stream:
		if name, ok := enc.Dict.GetName("CMapName"); ok {
			f.Encoding = string(name)
		}
		if data, err := enc.Decode(); err == nil {
			f.cmap = ParseCMap(data)
		}
	}
	if f.Encoding == "" {
		f.Encoding = "Identity-H"
	}
	f.identity = strings.HasPrefix(f.Encoding, "Identity-")
	f.vertical = strings.HasSuffix(f.Encoding, "-V")

	descendants, _ := resolve(r, dict.Get("DescendantFonts")).(core.Array)
	if len(descendants) == 0 {
		return
	}
	cidFont, ok := resolve(r, descendants[0]).(core.Dict)
	if !ok {
		return
	}
	if dw, ok := number(r, cidFont.Get("DW")); ok {
		f.dw = dw
	}
	if w, ok := resolve(r, cidFont.Get("W")).(core.Array); ok {
		f.cidWidths = parseWidths(w, r)
	}
}

// parseWidths reads a /W array: "c [w1 w2 ...]" or "cfirst clast w".
func parseWidths(w core.Array, r Resolver) []widthRange {
	var out []widthRange
	for i := 0; i+1 < len(w); {
		first, ok := number(r, w[i])
		if !ok {
			break
		}
		if arr, ok := resolve(r, w[i+1]).(core.Array); ok {
			wr := widthRange{first: uint32(first), widths: make([]float64, len(arr))}
			for j, v := range arr {
				wr.widths[j], _ = number(r, v)
			}
			wr.last = wr.first + uint32(len(arr)) - 1
			if len(arr) > 0 {
				out = append(out, wr)
			}
			i += 2
			continue
		}
		if i+2 >= len(w) {
			break
		}
		last, ok1 := number(r, w[i+1])
		width, ok2 := number(r, w[i+2])
		if ok1 && ok2 {
			out = append(out, widthRange{first: uint32(first), last: uint32(last), width: width})
		}
		i += 3
	}
	return out
}

// cid maps a character code to a CID. Identity CMaps and unknown
// predefined CMaps use the code itself.
func (f *Font) cid(code uint32) uint32 {
	if cid, ok := f.cmap.CID(code); ok {
		return cid
	}
	return code
}

func (f *Font) cidWidth(cid uint32) float64 {
	for _, wr := range f.cidWidths {
		if cid < wr.first || cid > wr.last {
			continue
		}
		if wr.widths != nil {
			return wr.widths[cid-wr.first]
		}
		return wr.width
	}
	return f.dw
}
