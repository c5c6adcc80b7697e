package core

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
)

// XRefEntryType distinguishes the three kinds of cross-reference entry.
type XRefEntryType int

const (
	XRefFree       XRefEntryType = iota // object number is unused
	XRefInUse                           // object stored at a byte offset
	XRefCompressed                      // object stored inside an object stream
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefInUse:
		return "in-use"
	case XRefCompressed:
		return "compressed"
	default:
		return "free"
	}
}

// XRefEntry locates one object. For in-use entries Offset is the byte
// offset of the "n g obj" header; for compressed entries Container is the
// object number of the object stream and Index the position within it.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	Container  int
	Index      int
}

// InUse reports whether the entry names a live object.
func (e XRefEntry) InUse() bool { return e.Type != XRefFree }

// XRefTable maps object numbers to their locations. After merging it holds
// the newest entry for every object number across all revisions.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// MergeOlder adds the entries and trailer keys of an older revision that
// this table does not define yet.
func (x *XRefTable) MergeOlder(older *XRefTable) {
	for num, entry := range older.Entries {
		if _, ok := x.Entries[num]; !ok {
			x.Entries[num] = entry
		}
	}
	for key, value := range older.Trailer {
		if _, ok := x.Trailer[key]; !ok {
			x.Trailer[key] = value
		}
	}
}

// MergeXRefTables merges revisions given newest first. The first table
// that defines an object number or trailer key wins.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		merged.MergeOlder(table)
	}
	return merged
}

// XRefParser locates and parses the cross-reference sections of a file:
// classic tables, cross-reference streams, and hybrid files that carry
// both.
type XRefParser struct {
	data     []byte
	warnings *Warnings
	policy   LengthPolicy
}

// NewXRefParser creates a new XRef parser over the whole file
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// SetWarnings sets the collector that receives recovery diagnostics.
func (x *XRefParser) SetWarnings(w *Warnings) { x.warnings = w }

// SetLengthPolicy selects the stream length recovery used for
// cross-reference streams.
func (x *XRefParser) SetLengthPolicy(policy LengthPolicy) { x.policy = policy }

// FindXRef returns the offset named by the last "startxref" in the file.
func (x *XRefParser) FindXRef() (int64, error) {
	idx := bytes.LastIndex(x.data, []byte("startxref"))
	if idx < 0 {
		return 0, Errorf(KindMalformedStructure, "startxref not found")
	}
	tok, _ := Lex(x.data, idx+len("startxref"))
	if tok.Type != TokenInteger || tok.Int < 0 || tok.Int >= int64(len(x.data)) {
		return 0, Errorf(KindMalformedStructure, "invalid startxref offset %q", tok.Value)
	}
	return tok.Int, nil
}

// ParseXRef parses the cross-reference section at offset, which is either
// an "xref" table with its trailer or a cross-reference stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	tok, _ := Lex(x.data, int(offset))
	switch {
	case tok.IsKeyword("xref"):
		return x.parseTable(tok)
	case tok.Type == TokenInteger:
		return x.parseStream(offset)
	}
	return nil, Errorf(KindMalformedStructure, "no cross-reference section at offset %d", offset)
}

// parseTable reads "xref" subsections "start count" followed by count
// entries of "offset generation n|f", then the trailer dictionary. Entries
// are read as tokens so that 19- and 21-byte records are accepted.
func (x *XRefParser) parseTable(xrefTok Token) (*XRefTable, error) {
	table := NewXRefTable()
	lex := NewLexerAt(x.data, int(xrefTok.End))

	for {
		tok := lex.NextToken()
		if tok.IsKeyword("trailer") {
			p := NewParserAt(x.data, tok.End)
			p.SetWarnings(x.warnings)
			obj, err := p.ParseObject()
			if err != nil {
				return nil, errors.Wrap(err, "trailer")
			}
			dict, ok := obj.(Dict)
			if !ok {
				return nil, Errorf(KindMalformedStructure, "trailer is %s, not a dictionary", obj.Type())
			}
			table.Trailer = dict
			return table, nil
		}
		countTok := lex.NextToken()
		if tok.Type != TokenInteger || countTok.Type != TokenInteger || tok.Int < 0 || countTok.Int < 0 {
			return nil, Errorf(KindMalformedStructure, "invalid xref subsection header at offset %d", tok.Pos)
		}

		start := int(tok.Int)
		for i := 0; i < int(countTok.Int); i++ {
			offTok := lex.NextToken()
			genTok := lex.NextToken()
			flagTok := lex.NextToken()
			if offTok.Type != TokenInteger || genTok.Type != TokenInteger ||
				!(flagTok.IsKeyword("n") || flagTok.IsKeyword("f")) {
				return nil, Errorf(KindMalformedStructure, "invalid xref entry %d at offset %d", start+i, offTok.Pos)
			}
			entry := XRefEntry{Type: XRefFree, Offset: offTok.Int, Generation: int(genTok.Int)}
			if flagTok.IsKeyword("n") {
				entry.Type = XRefInUse
			}
			// later subsections in one table override earlier ones
			table.Set(start+i, entry)
		}
	}
}

// parseStream reads a cross-reference stream object at offset. Its
// decoded body is a sequence of records whose field widths come from /W;
// /Index lists the object number ranges (default [0 Size]).
func (x *XRefParser) parseStream(offset int64) (*XRefTable, error) {
	p := NewParserAt(x.data, offset)
	p.SetWarnings(x.warnings)
	p.SetLengthPolicy(x.policy)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, errors.Wrapf(err, "xref stream at offset %d", offset)
	}
	stream, ok := ind.Object.(*Stream)
	if !ok {
		return nil, Errorf(KindMalformedStructure, "object at offset %d is not an xref stream", offset)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, Errorf(KindMalformedStructure, "stream at offset %d has /Type %q, not /XRef", offset, t)
	}

	wArr, _ := stream.Dict.GetArray("W")
	w, ok := wArr.Floats()
	if !ok || len(w) != 3 {
		return nil, Errorf(KindMalformedStructure, "xref stream %s: invalid /W %s", ind.Ref, wArr)
	}
	widths := [3]int{int(w[0]), int(w[1]), int(w[2])}
	for _, n := range widths {
		if n < 0 || n > 8 {
			return nil, Errorf(KindMalformedStructure, "xref stream %s: invalid /W %s", ind.Ref, wArr)
		}
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, Errorf(KindMalformedStructure, "xref stream %s: empty /W", ind.Ref)
	}

	size, _ := stream.Dict.GetInt("Size")
	index := []float64{0, float64(size)}
	if idxArr, ok := stream.Dict.GetArray("Index"); ok {
		index, ok = idxArr.Floats()
		if !ok || len(index)%2 != 0 {
			return nil, Errorf(KindMalformedStructure, "xref stream %s: invalid /Index %s", ind.Ref, idxArr)
		}
	}

	body, err := stream.Decode()
	if err != nil {
		return nil, errors.Wrapf(err, "xref stream %s", ind.Ref)
	}

	table := NewXRefTable()
	table.Trailer = stream.Dict
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := int(index[i]), int(index[i+1])
		for j := 0; j < count; j++ {
			if pos+rowLen > len(body) {
				x.warnings.Addf("xref", "xref stream %s: body ends after %d records", ind.Ref, pos/rowLen)
				return table, nil
			}
			row := body[pos : pos+rowLen]
			pos += rowLen

			typ := readField(row[:widths[0]], 1)
			f2 := readField(row[widths[0]:widths[0]+widths[1]], 0)
			f3 := readField(row[widths[0]+widths[1]:], 0)
			num := start + j
			if _, dup := table.Entries[num]; dup {
				continue
			}
			switch typ {
			case 0:
				table.Set(num, XRefEntry{Type: XRefFree, Generation: int(f3)})
			case 1:
				table.Set(num, XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)})
			case 2:
				table.Set(num, XRefEntry{Type: XRefCompressed, Container: int(f2), Index: int(f3)})
			default:
				// unknown types are references to the null object
			}
		}
	}
	return table, nil
}

// readField decodes a big-endian field; an empty field takes def.
func readField(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// ParseAllXRefs follows the revision chain from the last startxref and
// returns the sections newest first. For each revision the section itself
// comes first, then its /XRefStm stream (hybrid files), then /Prev.
// A /Prev that loops back is dropped with a warning.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	seen := map[int64]bool{}
	for {
		seen[offset] = true
		table, err := x.ParseXRef(offset)
		if err != nil {
			if len(tables) == 0 {
				return nil, err
			}
			x.warnings.Addf("xref", "previous cross-reference section at %d ignored: %v", offset, err)
			break
		}
		tables = append(tables, table)

		if stm, ok := table.Trailer.GetInt("XRefStm"); ok && !seen[int64(stm)] {
			seen[int64(stm)] = true
			hybrid, err := x.parseStream(int64(stm))
			if err != nil {
				x.warnings.Addf("xref", "/XRefStm at %d ignored: %v", stm, err)
			} else {
				tables = append(tables, hybrid)
			}
		}

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		if seen[int64(prev)] {
			x.warnings.Addf("xref", "/Prev %d loops back; chain stopped", prev)
			break
		}
		offset = int64(prev)
	}
	return tables, nil
}

// Parse builds the merged cross-reference table. When the startxref chain
// cannot be read the file is scanned for object headers instead.
func (x *XRefParser) Parse() (*XRefTable, error) {
	tables, err := x.ParseAllXRefs()
	if err == nil {
		merged := MergeXRefTables(tables...)
		if merged.Trailer.Has("Root") {
			return merged, nil
		}
		err = Errorf(KindMalformedStructure, "trailer has no /Root")
	}
	x.warnings.Addf("xref", "rebuilding cross-reference table: %v", err)
	return x.Repair()
}

// Repair reconstructs the table by scanning for "n g obj" headers. Stream
// bodies are skipped. The last "trailer" dictionary, or failing that the
// last cross-reference stream dictionary, becomes the trailer. Later
// definitions of an object number win, as they do in incremental updates.
func (x *XRefParser) Repair() (*XRefTable, error) {
	table := NewXRefTable()
	var trailer Dict
	lex := NewLexer(x.data)

	var window [2]Token
	for {
		tok := lex.NextToken()
		if tok.Type == TokenEOF {
			break
		}
		switch {
		case tok.IsKeyword("obj") && window[0].Type == TokenInteger && window[1].Type == TokenInteger:
			table.Set(int(window[0].Int), XRefEntry{
				Type:       XRefInUse,
				Offset:     window[0].Pos,
				Generation: int(window[1].Int),
			})
		case tok.IsKeyword("stream"):
			if idx := bytes.Index(x.data[tok.End:], kwEndstream); idx >= 0 {
				lex.SetPos(int(tok.End) + idx + len(kwEndstream))
			} else {
				lex.SetPos(len(x.data))
			}
		case tok.IsKeyword("trailer"):
			p := NewParserAt(x.data, tok.End)
			if obj, err := p.ParseObject(); err == nil {
				if d, ok := obj.(Dict); ok {
					trailer = d
				}
			}
		}
		window[0], window[1] = window[1], tok
	}

	if table.Size() == 0 {
		return nil, Errorf(KindMalformedStructure, "no objects found")
	}
	x.addCompressedEntries(table)
	if trailer == nil {
		trailer = x.findXRefStreamTrailer(table)
	}
	if trailer == nil {
		trailer = Dict{"Size": Int(table.Size())}
	}
	table.Trailer = trailer
	if !trailer.Has("Root") {
		if root, ok := x.findCatalog(table); ok {
			trailer["Root"] = root
		}
	}
	if !trailer.Has("Root") {
		return nil, Errorf(KindMalformedStructure, "no trailer /Root and no catalog object")
	}
	x.warnings.Addf("xref", "cross-reference table rebuilt with %d objects", table.Size())
	return table, nil
}

// findXRefStreamTrailer returns the dictionary of the cross-reference
// stream with the highest offset.
func (x *XRefParser) findXRefStreamTrailer(table *XRefTable) Dict {
	var best Dict
	var bestOffset int64 = -1
	for _, entry := range table.Entries {
		if entry.Offset <= bestOffset {
			continue
		}
		p := NewParserAt(x.data, entry.Offset)
		ind, err := p.ParseIndirectObject()
		if err != nil {
			continue
		}
		if s, ok := ind.Object.(*Stream); ok {
			if t, _ := s.Dict.GetName("Type"); t == "XRef" {
				best, bestOffset = s.Dict, entry.Offset
			}
		}
	}
	return best
}

// addCompressedEntries registers the objects packed in the object streams
// found by the scan. Objects also defined directly keep that definition.
func (x *XRefParser) addCompressedEntries(table *XRefTable) {
	for _, num := range sortedNumbers(table) {
		stream, ok := x.streamAt(table.Entries[num])
		if !ok {
			continue
		}
		if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
			continue
		}
		os, err := NewObjectStream(stream)
		if err != nil {
			continue
		}
		nums, err := os.ObjectNumbers()
		if err != nil {
			// encrypted containers cannot be read before authentication
			x.warnings.Addf("xref", "object stream %d not indexed: %v", num, err)
			continue
		}
		for i, n := range nums {
			if _, ok := table.Entries[n]; !ok {
				table.Set(n, XRefEntry{Type: XRefCompressed, Container: num, Index: i})
			}
		}
	}
}

func (x *XRefParser) streamAt(entry XRefEntry) (*Stream, bool) {
	if entry.Type != XRefInUse {
		return nil, false
	}
	p := NewParserAt(x.data, entry.Offset)
	p.SetLengthPolicy(x.policy)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, false
	}
	s, ok := ind.Object.(*Stream)
	return s, ok
}

func sortedNumbers(table *XRefTable) []int {
	nums := make([]int, 0, table.Size())
	for num := range table.Entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}

// findCatalog looks for an object with /Type /Catalog, lowest object
// number first.
func (x *XRefParser) findCatalog(table *XRefTable) (IndirectRef, bool) {
	containers := map[int]*ObjectStream{}
	for _, num := range sortedNumbers(table) {
		entry := table.Entries[num]
		var obj Object
		switch entry.Type {
		case XRefInUse:
			ind, err := NewParserAt(x.data, entry.Offset).ParseIndirectObject()
			if err != nil {
				continue
			}
			obj = ind.Object
		case XRefCompressed:
			os, ok := containers[entry.Container]
			if !ok {
				if s, ok := x.streamAt(table.Entries[entry.Container]); ok {
					os, _ = NewObjectStream(s)
				}
				containers[entry.Container] = os
			}
			if os == nil {
				continue
			}
			obj, _, _ = os.GetObjectByIndex(entry.Index)
		}
		if d, ok := obj.(Dict); ok {
			if t, _ := d.GetName("Type"); t == "Catalog" {
				return IndirectRef{Number: num, Generation: entry.Generation}, true
			}
		}
	}
	return IndirectRef{}, false
}
