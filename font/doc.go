// Package font supplies the font metrics and text decoding used when
// content streams show text.
//
// # Fonts
//
// [Load] reads a font dictionary into a [Font]:
//
//	f := font.Load(fontDict, resolver)
//	code, n := f.NextCode(shown) // one byte for simple fonts
//	w := f.Width(code)           // thousandths of an em
//	text := f.Decode(shown)
//
// Simple fonts (Type1, TrueType, Type3) take widths from /FirstChar and
// /Widths, then from the standard 14 tables, then /MissingWidth, then
// [DefaultWidth]. Type0 fonts split codes with their CMap and take widths
// from the descendant's /W and /DW.
//
// # Encodings
//
// Text comes from /ToUnicode when it maps a code. Otherwise simple fonts
// use their base encoding (WinAnsi and MacRoman come from
// golang.org/x/text/encoding/charmap) overlaid with /Differences glyph
// names. [DecodeTextString] decodes document text strings such as /Info
// entries.
package font
