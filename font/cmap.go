package font

import (
	"golang.org/x/text/encoding/unicode"

	"github.com/tsawler/pdfcore/core"
)

// CMap is a parsed CMap program: a ToUnicode map, an embedded /Encoding
// CMap of a composite font, or both.
type CMap struct {
	codespace []codespaceRange
	chars     map[uint32]string
	ranges    []bfRange
	cids      map[uint32]uint32
	cidRanges []cidRange
}

type codespaceRange struct {
	lo, hi []byte
}

type bfRange struct {
	lo, hi uint32
	dst    []byte   // UTF-16BE of lo; the last unit is incremented
	array  []string // one string per code when the range uses [...]
}

type cidRange struct {
	lo, hi, cid uint32
}

// cmapOperand is one value collected between CMap keywords.
type cmapOperand struct {
	str   []byte
	num   int64
	isNum bool
	array [][]byte
	isArr bool
}

// ParseCMap reads the mapping sections of a CMap program. Syntax it does
// not understand is skipped, so the result may be partial but never nil.
func ParseCMap(data []byte) *CMap {
	cm := &CMap{chars: make(map[uint32]string), cids: make(map[uint32]uint32)}
	lex := core.NewLexer(data)
	var ops []cmapOperand
	for {
		tok := lex.NextToken()
		switch tok.Type {
		case core.TokenEOF:
			return cm
		case core.TokenHexString, core.TokenString:
			ops = append(ops, cmapOperand{str: tok.Value})
		case core.TokenInteger:
			ops = append(ops, cmapOperand{num: tok.Int, isNum: true})
		case core.TokenArrayStart:
			ops = append(ops, readArray(lex))
		case core.TokenKeyword:
			cm.section(string(tok.Value), ops)
			ops = ops[:0]
		default:
			// names and dictionaries belong to the CMap header
			ops = ops[:0]
		}
	}
}

func readArray(lex *core.Lexer) cmapOperand {
	op := cmapOperand{isArr: true}
	for {
		tok := lex.NextToken()
		switch tok.Type {
		case core.TokenArrayEnd, core.TokenEOF:
			return op
		case core.TokenHexString, core.TokenString:
			op.array = append(op.array, tok.Value)
		}
	}
}

func (cm *CMap) section(keyword string, ops []cmapOperand) {
	switch keyword {
	case "endcodespacerange":
		for i := 0; i+1 < len(ops); i += 2 {
			lo, hi := ops[i].str, ops[i+1].str
			if len(lo) > 0 && len(lo) == len(hi) && len(lo) <= 4 {
				cm.codespace = append(cm.codespace, codespaceRange{lo: lo, hi: hi})
			}
		}
	case "endbfchar":
		for i := 0; i+1 < len(ops); i += 2 {
			if len(ops[i].str) > 0 && !ops[i+1].isArr {
				cm.chars[codeValue(ops[i].str)] = utf16String(ops[i+1].str)
			}
		}
	case "endbfrange":
		for i := 0; i+2 < len(ops); i += 3 {
			r := bfRange{lo: codeValue(ops[i].str), hi: codeValue(ops[i+1].str)}
			if r.hi < r.lo {
				continue
			}
			if ops[i+2].isArr {
				for _, s := range ops[i+2].array {
					r.array = append(r.array, utf16String(s))
				}
			} else {
				r.dst = ops[i+2].str
			}
			cm.ranges = append(cm.ranges, r)
		}
	case "endcidchar":
		for i := 0; i+1 < len(ops); i += 2 {
			if ops[i+1].isNum {
				cm.cids[codeValue(ops[i].str)] = uint32(ops[i+1].num)
			}
		}
	case "endcidrange":
		for i := 0; i+2 < len(ops); i += 3 {
			if ops[i+2].isNum {
				cm.cidRanges = append(cm.cidRanges, cidRange{
					lo:  codeValue(ops[i].str),
					hi:  codeValue(ops[i+1].str),
					cid: uint32(ops[i+2].num),
				})
			}
		}
	}
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

var utf16Decoder = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// utf16String decodes a CMap destination. Odd-length values are taken
// as one byte per character.
func utf16String(b []byte) string {
	if len(b)%2 != 0 {
		r := make([]rune, len(b))
		for i, c := range b {
			r[i] = rune(c)
		}
		return string(r)
	}
	out, err := utf16Decoder.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// HasCodespace reports whether the CMap declares code lengths.
func (cm *CMap) HasCodespace() bool {
	return cm != nil && len(cm.codespace) > 0
}

// NextCode reads the code at the start of data using the codespace
// ranges, trying shorter codes first. When no range matches, fallback
// bytes are consumed.
func (cm *CMap) NextCode(data []byte, fallback int) (code uint32, n int) {
	if len(data) == 0 {
		return 0, 0
	}
	if cm != nil {
		for length := 1; length <= 4 && length <= len(data); length++ {
			for _, r := range cm.codespace {
				if len(r.lo) == length && inCodespace(data[:length], r) {
					return codeValue(data[:length]), length
				}
			}
		}
	}
	n = min(max(fallback, 1), len(data))
	return codeValue(data[:n]), n
}

func inCodespace(b []byte, r codespaceRange) bool {
	for i, c := range b {
		if c < r.lo[i] || c > r.hi[i] {
			return false
		}
	}
	return true
}

// Unicode returns the text a code maps to.
func (cm *CMap) Unicode(code uint32) (string, bool) {
	if cm == nil {
		return "", false
	}
	if s, ok := cm.chars[code]; ok {
		return s, true
	}
	for _, r := range cm.ranges {
		if code < r.lo || code > r.hi {
			continue
		}
		off := code - r.lo
		if r.array != nil {
			if int(off) < len(r.array) {
				return r.array[off], true
			}
			return "", false
		}
		if len(r.dst) < 2 {
			return string(rune(codeValue(r.dst) + off)), true
		}
		dst := append([]byte(nil), r.dst...)
		last := uint32(dst[len(dst)-2])<<8 | uint32(dst[len(dst)-1])
		last += off
		dst[len(dst)-2], dst[len(dst)-1] = byte(last>>8), byte(last)
		return utf16String(dst), true
	}
	return "", false
}

// CID returns the CID a code selects in an encoding CMap.
func (cm *CMap) CID(code uint32) (uint32, bool) {
	if cm == nil {
		return 0, false
	}
	if cid, ok := cm.cids[code]; ok {
		return cid, true
	}
	for _, r := range cm.cidRanges {
		if code >= r.lo && code <= r.hi {
			return r.cid + code - r.lo, true
		}
	}
	return 0, false
}
