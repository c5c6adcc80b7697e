// Package contentstream parses and interprets PDF content streams.
//
// # Parsing
//
// [Parser] splits a stream into operations. It never fails: stray
// delimiters, unterminated arrays and operands without an operator are
// reported on a [core.Warnings] collector and dropped.
//
//	p := contentstream.NewParser(data)
//	p.SetWarnings(warnings)
//	for _, op := range p.Parse() {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Inline images (BI ... ID ... EI) come back as a single BI operation
// whose Image holds the expanded dictionary and the raw data. The data
// length is taken from /L when present, from the image geometry when the
// data is unfiltered, and otherwise by finding an EI that stands alone
// between whitespace.
//
// # Interpretation
//
// [Interpreter] runs the graphics state machine and returns the drawn
// elements in paint order:
//
//	in := contentstream.NewInterpreter(resolver, contentstream.WithWarnings(w))
//	elements := in.Run(data, page.Resources(), graphicsstate.NewGraphicsState())
//
// Each [Path], [Text] and [Image] carries a snapshot of the graphics state
// it was painted with. Clipping is tracked as a bounding box: W and W*
// take effect at the next painting operator, and elements that cannot
// show through the clip are dropped. Form XObjects are interpreted inline
// up to a nesting limit; soft masks from ExtGState /SMask entries are
// rendered into a [graphicsstate.SoftMask].
//
// Fonts and colors are collaborators: [FontMetrics] (by default package
// font) supplies glyph widths and text, [ColorConverter] (by default
// [DeviceColors]) maps state colors to RGB.
//
// # Common Operators
//
// Graphics state: q, Q, cm, w, J, j, M, d, ri, i, gs
//
// Paths: m, l, c, v, y, h, re, then S, s, f, F, f*, B, B*, b, b*, n and
// the clip operators W, W*
//
// Color: CS, cs, SC, SCN, sc, scn, G, g, RG, rg, K, k
//
// Text: BT, ET, Tc, Tw, Tz, TL, Tf, Tr, Ts, Td, TD, Tm, T*, Tj, TJ, ', "
//
// XObjects: Do, BI
//
// Marked content (BMC, BDC, EMC, MP, DP), sh and the BX/EX compatibility
// section are accepted and draw nothing. Unknown operators are reported
// once, except inside BX/EX.
package contentstream
