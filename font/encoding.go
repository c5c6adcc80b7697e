package font

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/unicode/norm"

	"github.com/tsawler/pdfcore/core"
)

// Encoding maps the single-byte codes of a simple font to Unicode. A zero
// entry means the code has no known mapping.
type Encoding [256]rune

// Names of the predefined simple-font encodings.
const (
	StandardEncoding  = "StandardEncoding"
	WinAnsiEncoding   = "WinAnsiEncoding"
	MacRomanEncoding  = "MacRomanEncoding"
	PDFDocEncoding    = "PDFDocEncoding"
	MacExpertEncoding = "MacExpertEncoding"
)

// BaseEncoding returns the predefined encoding called name, and false if
// the name is unknown.
func BaseEncoding(name string) (*Encoding, bool) {
	switch name {
	case WinAnsiEncoding:
		return fromCharmap(charmap.Windows1252), true
	case MacRomanEncoding:
		return fromCharmap(charmap.Macintosh), true
	case StandardEncoding:
		return standardEncoding(), true
	case PDFDocEncoding:
		return pdfDocEncoding(), true
	}
	return nil, false
}

func fromCharmap(cm *charmap.Charmap) *Encoding {
	var e Encoding
	for i := range e {
		if r := cm.DecodeByte(byte(i)); r != utf8.RuneError {
			e[i] = r
		}
	}
	return &e
}

// Codes of StandardEncoding above 127, and the two quotes that differ from
// ASCII.
var standardHigh = map[byte]string{
	0x27: "quoteright", 0x60: "quoteleft",
	0xa1: "exclamdown", 0xa2: "cent", 0xa3: "sterling", 0xa4: "fraction",
	0xa5: "yen", 0xa6: "florin", 0xa7: "section", 0xa8: "currency",
	0xa9: "quotesingle", 0xaa: "quotedblleft", 0xab: "guillemotleft",
	0xac: "guilsinglleft", 0xad: "guilsinglright", 0xae: "fi", 0xaf: "fl",
	0xb1: "endash", 0xb2: "dagger", 0xb3: "daggerdbl", 0xb4: "periodcentered",
	0xb6: "paragraph", 0xb7: "bullet", 0xb8: "quotesinglbase",
	0xb9: "quotedblbase", 0xba: "quotedblright", 0xbb: "guillemotright",
	0xbc: "ellipsis", 0xbd: "perthousand", 0xbf: "questiondown",
	0xc1: "grave", 0xc2: "acute", 0xc3: "circumflex", 0xc4: "tilde",
	0xc5: "macron", 0xc6: "breve", 0xc7: "dotaccent", 0xc8: "dieresis",
	0xca: "ring", 0xcb: "cedilla", 0xcd: "hungarumlaut", 0xce: "ogonek",
	0xcf: "caron", 0xd0: "emdash", 0xe1: "AE", 0xe3: "ordfeminine",
	0xe8: "Lslash", 0xe9: "Oslash", 0xea: "OE", 0xeb: "ordmasculine",
	0xf1: "ae", 0xf5: "dotlessi", 0xf8: "lslash", 0xf9: "oslash",
	0xfa: "oe", 0xfb: "germandbls",
}

func standardEncoding() *Encoding {
	var e Encoding
	for i := 32; i < 127; i++ {
		e[i] = rune(i)
	}
	for code, name := range standardHigh {
		e[code], _ = GlyphRune(name)
	}
	return &e
}

// PDFDocEncoding is Latin-1 except for these codes.
var pdfDocOverrides = map[byte]rune{
	0x18: '˘', 0x19: 'ˇ', 0x1a: 'ˆ', 0x1b: '˙',
	0x1c: '˝', 0x1d: '˛', 0x1e: '˚', 0x1f: '˜',
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…',
	0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8a: '−', 0x8b: '‰',
	0x8c: '„', 0x8d: '“', 0x8e: '”', 0x8f: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ',
	0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9a: 'ı', 0x9b: 'ł',
	0x9c: 'œ', 0x9d: 'š', 0x9e: 'ž', 0xa0: '€',
}

func pdfDocEncoding() *Encoding {
	e := fromCharmap(charmap.ISO8859_1)
	for code, r := range pdfDocOverrides {
		e[code] = r
	}
	e[0x9f] = 0
	e[0xad] = 0
	return e
}

// Decode maps each byte through e. Unmapped bytes are kept as the rune of
// the same value.
func (e *Encoding) Decode(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		r := e[b]
		if r == 0 {
			r = rune(b)
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// applyDifferences overlays a /Differences array: an integer sets the
// next code, each following name maps one code.
func (e *Encoding) applyDifferences(diffs core.Array) {
	code := -1
	for _, item := range diffs {
		switch v := item.(type) {
		case core.Int:
			code = int(v)
		case core.Name:
			if code >= 0 && code < len(e) {
				if r, ok := GlyphRune(string(v)); ok {
					e[code] = r
				}
			}
			code++
		}
	}
}

// GlyphRune returns the Unicode value of a glyph name: a name from the
// table below, uniXXXX, uXXXX[XX], or a single character.
func GlyphRune(name string) (rune, bool) {
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 7 && strings.HasPrefix(name, "uni") {
		if v, err := strconv.ParseUint(name[3:], 16, 32); err == nil {
			return rune(v), true
		}
	}
	if n := len(name); n >= 5 && n <= 7 && name[0] == 'u' {
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil && v <= utf8.MaxRune {
			return rune(v), true
		}
	}
	if r, size := utf8.DecodeRuneInString(name); size == len(name) && r != utf8.RuneError {
		return r, true
	}
	return 0, false
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#',
	"dollar": '$', "percent": '%', "ampersand": '&', "quotesingle": '\'',
	"parenleft": '(', "parenright": ')', "asterisk": '*', "plus": '+',
	"comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=',
	"greater": '>', "question": '?', "at": '@', "bracketleft": '[',
	"backslash": '\\', "bracketright": ']', "asciicircum": '^',
	"underscore": '_', "grave": '`', "braceleft": '{', "bar": '|',
	"braceright": '}', "asciitilde": '~',

	"quoteleft": '‘', "quoteright": '’', "quotedblleft": '“',
	"quotedblright": '”', "quotesinglbase": '‚',
	"quotedblbase": '„', "guillemotleft": '«',
	"guillemotright": '»', "guilsinglleft": '‹',
	"guilsinglright": '›', "endash": '–', "emdash": '—',
	"bullet": '•', "ellipsis": '…', "dagger": '†',
	"daggerdbl": '‡', "perthousand": '‰', "periodcentered": '·',
	"trademark": '™', "copyright": '©', "registered": '®',
	"degree": '°', "plusminus": '±', "multiply": '×',
	"divide": '÷', "minus": '−', "fraction": '⁄',
	"section": '§', "paragraph": '¶', "mu": 'µ',
	"cent": '¢', "sterling": '£', "yen": '¥', "Euro": '€',
	"florin": 'ƒ', "currency": '¤', "exclamdown": '¡',
	"questiondown": '¿', "ordfeminine": 'ª', "ordmasculine": 'º',
	"nbspace": '\u00a0', "sfthyphen": '\u00ad',

	"acute": '´', "circumflex": 'ˆ', "tilde": '˜',
	"macron": '¯', "breve": '˘', "dotaccent": '˙',
	"dieresis": '¨', "ring": '˚', "cedilla": '¸',
	"hungarumlaut": '˝', "ogonek": '˛', "caron": 'ˇ',

	"fi": 'ﬁ', "fl": 'ﬂ', "ff": 'ﬀ', "ffi": 'ﬃ', "ffl": 'ﬄ',
	"AE": 'Æ', "ae": 'æ', "OE": 'Œ', "oe": 'œ',
	"Oslash": 'Ø', "oslash": 'ø', "Lslash": 'Ł', "lslash": 'ł',
	"germandbls": 'ß', "dotlessi": 'ı', "Eth": 'Ð', "eth": 'ð',
	"Thorn": 'Þ', "thorn": 'þ',

	"Agrave": 'À', "Aacute": 'Á', "Acircumflex": 'Â', "Atilde": 'Ã',
	"Adieresis": 'Ä', "Aring": 'Å', "Ccedilla": 'Ç',
	"Egrave": 'È', "Eacute": 'É', "Ecircumflex": 'Ê', "Edieresis": 'Ë',
	"Igrave": 'Ì', "Iacute": 'Í', "Icircumflex": 'Î', "Idieresis": 'Ï',
	"Ntilde": 'Ñ', "Ograve": 'Ò', "Oacute": 'Ó', "Ocircumflex": 'Ô',
	"Otilde": 'Õ', "Odieresis": 'Ö', "Ugrave": 'Ù', "Uacute": 'Ú',
	"Ucircumflex": 'Û', "Udieresis": 'Ü', "Yacute": 'Ý',
	"Scaron": 'Š', "Zcaron": 'Ž', "Ydieresis": 'Ÿ',
	"agrave": 'à', "aacute": 'á', "acircumflex": 'â', "atilde": 'ã',
	"adieresis": 'ä', "aring": 'å', "ccedilla": 'ç',
	"egrave": 'è', "eacute": 'é', "ecircumflex": 'ê', "edieresis": 'ë',
	"igrave": 'ì', "iacute": 'í', "icircumflex": 'î', "idieresis": 'ï',
	"ntilde": 'ñ', "ograve": 'ò', "oacute": 'ó', "ocircumflex": 'ô',
	"otilde": 'õ', "odieresis": 'ö', "ugrave": 'ù', "uacute": 'ú',
	"ucircumflex": 'û', "udieresis": 'ü', "yacute": 'ý', "ydieresis": 'ÿ',
	"scaron": 'š', "zcaron": 'ž',
}

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// DecodeTextString decodes a text string outside content streams, such as
// an /Info entry: UTF-16BE or UTF-8 when the matching byte order mark is
// present, PDFDocEncoding otherwise. The result is NFC-normalized.
func DecodeTextString(s []byte) string {
	var out string
	switch {
	case len(s) >= 2 && s[0] == 0xfe && s[1] == 0xff:
		b, err := utf16BE.NewDecoder().Bytes(s)
		if err != nil {
			return ""
		}
		out = string(b)
	case len(s) >= 3 && s[0] == 0xef && s[1] == 0xbb && s[2] == 0xbf:
		out = string(s[3:])
	default:
		out = pdfDocTable.Decode(s)
	}
	return norm.NFC.String(out)
}

var pdfDocTable = pdfDocEncoding()
