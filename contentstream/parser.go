package contentstream

import (
	"bytes"

	"github.com/tsawler/pdfcore/core"
)

// Operation represents a single content stream operation consisting of an
// operator and its operands. Operands are PDF objects that precede the operator.
type Operation struct {
	Operator string        // The operator (e.g., "Tj", "Tm", "q")
	Operands []core.Object // The operands
	Offset   int64         // offset of the operator in the stream

	// Image is set for BI: the inline image through its EI.
	Image *InlineImage
}

// InlineImage is one BI ... ID ... EI sequence. Abbreviated keys and
// color space names are expanded, so Dict reads like an image XObject
// dictionary.
type InlineImage struct {
	Dict core.Dict
	Data []byte
}

// Parser splits a content stream into operations. It never fails:
// malformed input is reported on the warning collector and skipped.
type Parser struct {
	data     []byte
	lex      *core.Lexer
	warnings *core.Warnings
	operands []core.Object
}

// NewParser creates a new content stream parser for the given data.
func NewParser(data []byte) *Parser {
	return &Parser{data: data, lex: core.NewLexer(data)}
}

// SetWarnings sets the collector for tolerated syntax errors.
func (p *Parser) SetWarnings(w *core.Warnings) {
	p.warnings = w
}

// Parse parses the content stream and returns all operations in order.
func (p *Parser) Parse() []Operation {
	var ops []Operation
	for {
		op, ok := p.Next()
		if !ok {
			return ops
		}
		ops = append(ops, op)
	}
}

// Next returns the next operation, and false at the end of the stream.
func (p *Parser) Next() (Operation, bool) {
	for {
		tok := p.lex.NextToken()
		switch tok.Type {
		case core.TokenEOF:
			if len(p.operands) > 0 {
				p.warnAt(tok.Pos, "%d operands without an operator at end of stream", len(p.operands))
				p.operands = nil
			}
			return Operation{}, false
		case core.TokenKeyword:
			if v, ok := keywordValue(tok); ok {
				p.operands = append(p.operands, v)
				continue
			}
			kw := string(tok.Value)
			if isStrayDelimiter(kw) {
				p.warnAt(tok.Pos, "unexpected %q; dropping %d operands", kw, len(p.operands))
				p.operands = nil
				continue
			}
			op := Operation{Operator: kw, Operands: p.operands, Offset: tok.Pos}
			p.operands = nil
			if kw == "BI" {
				op.Image = p.inlineImage()
			}
			return op, true
		case core.TokenArrayEnd, core.TokenDictEnd:
			p.warnAt(tok.Pos, "unbalanced %q", tok.Value)
		default:
			if v, ok := p.value(tok); ok {
				p.operands = append(p.operands, v)
			}
		}
	}
}

func (p *Parser) warnAt(offset int64, format string, args ...interface{}) {
	p.warnings.AddAt("content", p.data, offset, format, args...)
}

func keywordValue(tok core.Token) (core.Object, bool) {
	switch string(tok.Value) {
	case "true":
		return core.Bool(true), true
	case "false":
		return core.Bool(false), true
	case "null":
		return core.Null{}, true
	}
	return nil, false
}

func isStrayDelimiter(kw string) bool {
	switch kw {
	case ")", ">", "{", "}":
		return true
	}
	return false
}

// value converts an operand token. Arrays and dictionaries are read in
// full. It reports false for tokens that are not values.
func (p *Parser) value(tok core.Token) (core.Object, bool) {
	switch tok.Type {
	case core.TokenInteger:
		return core.Int(tok.Int), true
	case core.TokenReal:
		return core.Real(tok.Real), true
	case core.TokenString, core.TokenHexString:
		return core.String(tok.Value), true
	case core.TokenName:
		return core.Name(tok.Value), true
	case core.TokenArrayStart:
		return p.array(tok), true
	case core.TokenDictStart:
		return p.dict(tok), true
	case core.TokenKeyword:
		return keywordValue(tok)
	}
	return nil, false
}

// array reads up to the closing bracket. An operator inside the array
// ends it early and is left for Next.
func (p *Parser) array(open core.Token) core.Array {
	arr := core.Array{}
	for {
		tok := p.lex.NextToken()
		switch tok.Type {
		case core.TokenArrayEnd:
			return arr
		case core.TokenEOF:
			p.warnAt(open.Pos, "unterminated array")
			return arr
		case core.TokenDictEnd:
			p.warnAt(tok.Pos, "unexpected '>>' in array")
			continue
		}
		v, ok := p.value(tok)
		if !ok {
			p.warnAt(open.Pos, "unterminated array before %q", tok.Value)
			p.lex.SetPos(int(tok.Pos))
			return arr
		}
		arr = append(arr, v)
	}
}

func (p *Parser) dict(open core.Token) core.Dict {
	d := core.Dict{}
	for {
		tok := p.lex.NextToken()
		switch tok.Type {
		case core.TokenDictEnd:
			return d
		case core.TokenEOF:
			p.warnAt(open.Pos, "unterminated dictionary")
			return d
		case core.TokenName:
			key := string(tok.Value)
			next := p.lex.NextToken()
			v, ok := p.value(next)
			if !ok {
				p.warnAt(tok.Pos, "dictionary key /%s has no value", key)
				if next.Type == core.TokenDictEnd {
					return d
				}
				p.lex.SetPos(int(next.Pos))
				return d
			}
			d[key] = v
		default:
			if _, ok := p.value(tok); !ok {
				p.warnAt(open.Pos, "unterminated dictionary before %q", tok.Value)
				p.lex.SetPos(int(tok.Pos))
				return d
			}
			p.warnAt(tok.Pos, "dictionary key is not a name")
		}
	}
}

// Abbreviations allowed in inline image dictionaries.
var inlineKeys = map[string]string{
	"BPC": "BitsPerComponent",
	"CS":  "ColorSpace",
	"D":   "Decode",
	"DP":  "DecodeParms",
	"F":   "Filter",
	"H":   "Height",
	"IM":  "ImageMask",
	"I":   "Interpolate",
	"W":   "Width",
	"L":   "Length",
}

var inlineColorSpaces = map[string]string{
	"G":    "DeviceGray",
	"RGB":  "DeviceRGB",
	"CMYK": "DeviceCMYK",
	"I":    "Indexed",
}

func expandColorSpace(obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.Name:
		if full, ok := inlineColorSpaces[string(v)]; ok {
			return core.Name(full)
		}
	case core.Array:
		out := make(core.Array, len(v))
		for i, item := range v {
			// the base space of [/I /RGB 1 <...>] may be abbreviated too
			if i < 2 {
				item = expandColorSpace(item)
			}
			out[i] = item
		}
		return out
	}
	return obj
}

// inlineImage reads the dictionary and data following BI.
func (p *Parser) inlineImage() *InlineImage {
	img := &InlineImage{Dict: core.Dict{}}
	for {
		tok := p.lex.NextToken()
		switch {
		case tok.Type == core.TokenEOF:
			p.warnAt(tok.Pos, "inline image without ID")
			return img
		case tok.IsKeyword("ID"):
			img.Data = p.inlineData(img.Dict, int(tok.End))
			return img
		case tok.IsKeyword("EI"):
			p.warnAt(tok.Pos, "inline image without data")
			return img
		case tok.Type == core.TokenName:
			key := string(tok.Value)
			if full, ok := inlineKeys[key]; ok {
				key = full
			}
			v, ok := p.value(p.lex.NextToken())
			if !ok {
				p.warnAt(tok.Pos, "inline image key /%s has no value", key)
				continue
			}
			if key == "ColorSpace" {
				v = expandColorSpace(v)
			}
			img.Dict[key] = v
		default:
			p.warnAt(tok.Pos, "unexpected %q in inline image dictionary", tok.Value)
		}
	}
}

// inlineData returns the bytes between ID and EI and moves past EI. The
// length comes from /Length when given, then from the image geometry when
// the data is unfiltered, and otherwise from the first EI that stands
// alone between whitespace.
func (p *Parser) inlineData(dict core.Dict, start int) []byte {
	// a single whitespace byte separates ID from the data
	if start < len(p.data) && core.IsWhitespace(p.data[start]) {
		start++
	}
	if n, ok := dict.GetInt("Length"); ok && n >= 0 {
		if end, ok := p.endAt(start, start+int(n)); ok {
			return p.data[start : start+int(n)]
		} else if end >= 0 {
			p.warnAt(int64(start), "inline image /Length %d is wrong; scanning for EI", n)
		}
	}
	if n, ok := rawImageSize(dict); ok {
		if _, ok := p.endAt(start, start+n); ok {
			return p.data[start : start+n]
		}
	}
	for i := start; i+1 < len(p.data); i++ {
		if p.data[i] != 'E' || p.data[i+1] != 'I' {
			continue
		}
		if i > start && !core.IsWhitespace(p.data[i-1]) {
			continue
		}
		if after := i + 2; after < len(p.data) && !core.IsWhitespace(p.data[after]) && !core.IsDelimiter(p.data[after]) {
			continue
		}
		p.lex.SetPos(i + 2)
		end := i
		if end > start {
			end-- // the whitespace before EI
		}
		return p.data[start:end]
	}
	p.warnAt(int64(start), "inline image data has no EI")
	p.lex.SetPos(len(p.data))
	return p.data[start:]
}

// endAt checks that EI follows the data ending at end, and if so moves
// past it. end is -1 when it lies outside the stream.
func (p *Parser) endAt(start, end int) (int, bool) {
	if end < start || end > len(p.data) {
		return -1, false
	}
	i := end
	for i < len(p.data) && core.IsWhitespace(p.data[i]) {
		i++
	}
	if !bytes.HasPrefix(p.data[i:], []byte("EI")) {
		return end, false
	}
	if after := i + 2; after < len(p.data) && !core.IsWhitespace(p.data[after]) && !core.IsDelimiter(p.data[after]) {
		return end, false
	}
	p.lex.SetPos(i + 2)
	return end, true
}

// rawImageSize returns the byte size of unfiltered inline image samples.
func rawImageSize(dict core.Dict) (int, bool) {
	if dict.Has("Filter") {
		return 0, false
	}
	w, ok1 := dict.GetInt("Width")
	h, ok2 := dict.GetInt("Height")
	if !ok1 || !ok2 || w <= 0 || h <= 0 {
		return 0, false
	}
	bpc, comps := 1, 1
	if mask, _ := dict.GetBool("ImageMask"); !mask {
		if b, ok := dict.GetInt("BitsPerComponent"); ok {
			bpc = int(b)
		} else {
			bpc = 8
		}
		switch cs := dict.Get("ColorSpace").(type) {
		case core.Name:
			switch cs {
			case "DeviceRGB", "CalRGB", "Lab":
				comps = 3
			case "DeviceCMYK":
				comps = 4
			case "DeviceGray", "CalGray":
			default:
				// a named resource: its component count is unknown here
				return 0, false
			}
		case core.Array:
			if n, _ := cs.GetName(0); n != "Indexed" {
				return 0, false
			}
		default:
			return 0, false
		}
	}
	row := (int(w)*comps*bpc + 7) / 8
	return row * int(h), true
}
