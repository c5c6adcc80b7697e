// Package testpdf builds small, byte-exact documents for tests: classic
// and stream cross-reference sections, incremental updates, object
// streams and standard-handler encryption. Offsets are always correct
// unless a test corrupts the output afterwards.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strconv"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/security"
)

type entry struct {
	compressed bool
	offset     int64
	container  int
	index      int
}

// Builder accumulates one document. Each Xref or XrefStream call closes a
// revision; objects written afterwards form an incremental update.
type Builder struct {
	buf      bytes.Buffer
	pending  map[int]entry
	maxNum   int
	lastXref int64 // -1 before the first revision

	enc    *security.Handler
	encRef core.IndirectRef
	id     []byte
	err    error
}

// New starts a document with a version 1.7 header.
func New() *Builder {
	return NewVersion("1.7")
}

// NewVersion starts a document with the given header version.
func NewVersion(version string) *Builder {
	b := &Builder{pending: map[int]entry{}, lastXref: -1}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)
	return b
}

// Err returns the first error met while building.
func (b *Builder) Err() error { return b.err }

// Offset returns the current length of the output.
func (b *Builder) Offset() int64 { return int64(b.buf.Len()) }

// Raw appends text verbatim.
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

func (b *Builder) record(num int, e entry) {
	b.pending[num] = e
	if num > b.maxNum {
		b.maxNum = num
	}
}

// Object writes "num 0 obj ... endobj". Strings are encrypted when the
// document is encrypted.
func (b *Builder) Object(num int, obj core.Object) *Builder {
	ref := core.IndirectRef{Number: num}
	if b.enc != nil && ref != b.encRef {
		obj = b.encryptStrings(ref, obj)
	}
	return b.ObjectText(num, Format(obj))
}

// ObjectText writes an object whose body is given as source text. The
// body is never encrypted.
func (b *Builder) ObjectText(num int, body string) *Builder {
	b.record(num, entry{offset: b.Offset()})
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return b
}

// Stream writes a stream object. /Length is set from data after
// encryption.
func (b *Builder) Stream(num int, dict core.Dict, data []byte) *Builder {
	ref := core.IndirectRef{Number: num}
	d := core.Dict{}
	for k, v := range dict {
		d[k] = v
	}
	if b.enc != nil {
		d = b.encryptStrings(ref, d).(core.Dict)
		if t, _ := d.GetName("Type"); t != "XRef" && !(t == "Metadata" && !b.enc.EncryptMetadata()) {
			enc, err := b.enc.EncryptStream(ref, data)
			if err != nil && b.err == nil {
				b.err = err
			}
			data = enc
		}
	}
	d["Length"] = core.Int(len(data))
	b.record(num, entry{offset: b.Offset()})
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nstream\n", num, Format(d))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

// FlateStream writes a stream compressed with FlateDecode.
func (b *Builder) FlateStream(num int, dict core.Dict, data []byte) *Builder {
	d := core.Dict{}
	for k, v := range dict {
		d[k] = v
	}
	d["Filter"] = core.Name("FlateDecode")
	return b.Stream(num, d, Deflate(data))
}

// ObjectStream packs objs into a compressed object stream numbered num.
func (b *Builder) ObjectStream(num int, objs map[int]core.Object) *Builder {
	nums := make([]int, 0, len(objs))
	for n := range objs {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var header, body bytes.Buffer
	for i, n := range nums {
		fmt.Fprintf(&header, "%d %d ", n, body.Len())
		body.WriteString(Format(objs[n]))
		body.WriteByte('\n')
		b.record(n, entry{compressed: true, container: num, index: i})
	}
	first := header.Len()
	header.Write(body.Bytes())
	return b.FlateStream(num, core.Dict{
		"Type":  core.Name("ObjStm"),
		"N":     core.Int(len(nums)),
		"First": core.Int(first),
	}, header.Bytes())
}

// Encrypt writes the /Encrypt dictionary as object num and encrypts every
// object written afterwards. /Encrypt and /ID are added to each trailer.
func (b *Builder) Encrypt(num int, cfg security.Config) *Builder {
	if cfg.ID == nil {
		cfg.ID = []byte("testpdf-file-id!")
	}
	dict, h, err := security.NewEncryption(cfg)
	if err != nil {
		b.err = err
		return b
	}
	b.encRef = core.IndirectRef{Number: num}
	b.id = cfg.ID
	b.Object(num, dict)
	b.enc = h
	return b
}

func (b *Builder) encryptStrings(ref core.IndirectRef, obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.String:
		enc, err := b.enc.EncryptString(ref, []byte(v))
		if err != nil && b.err == nil {
			b.err = err
		}
		return core.String(enc)
	case core.Array:
		out := make(core.Array, len(v))
		for i, e := range v {
			out[i] = b.encryptStrings(ref, e)
		}
		return out
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, e := range v {
			out[k] = b.encryptStrings(ref, e)
		}
		return out
	}
	return obj
}

func (b *Builder) trailer(trailer core.Dict) core.Dict {
	t := core.Dict{}
	for k, v := range trailer {
		t[k] = v
	}
	if _, ok := t["Size"]; !ok {
		t["Size"] = core.Int(b.maxNum + 1)
	}
	if _, ok := t["Prev"]; !ok && b.lastXref >= 0 {
		t["Prev"] = core.Int(b.lastXref)
	}
	if b.enc != nil {
		t["Encrypt"] = b.encRef
		t["ID"] = core.Array{core.String(b.id), core.String(b.id)}
	}
	return t
}

// sections groups the pending object numbers into contiguous runs. The
// first revision always starts with the free head of the free list.
func (b *Builder) sections(include func(entry) bool) [][]int {
	var nums []int
	for n, e := range b.pending {
		if include(e) {
			nums = append(nums, n)
		}
	}
	if b.lastXref < 0 {
		nums = append(nums, 0)
	}
	sort.Ints(nums)
	var out [][]int
	for i, n := range nums {
		if i == 0 || n != nums[i-1]+1 {
			out = append(out, nil)
		}
		out[len(out)-1] = append(out[len(out)-1], n)
	}
	return out
}

// Xref closes the revision with a classic table and trailer. /Size and
// /Prev are filled in unless trailer sets them.
func (b *Builder) Xref(trailer core.Dict) *Builder {
	offset := b.Offset()
	b.buf.WriteString("xref\n")
	for _, sec := range b.sections(func(e entry) bool { return !e.compressed }) {
		fmt.Fprintf(&b.buf, "%d %d\n", sec[0], len(sec))
		for _, n := range sec {
			e, ok := b.pending[n]
			if n == 0 && !ok {
				b.buf.WriteString("0000000000 65535 f \n")
				continue
			}
			fmt.Fprintf(&b.buf, "%010d 00000 n \n", e.offset)
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n%s\n", Format(b.trailer(trailer)))
	return b.finish(offset)
}

// XrefStream closes the revision with a cross-reference stream numbered
// num whose dictionary carries the trailer keys.
func (b *Builder) XrefStream(num int, trailer core.Dict) *Builder {
	offset := b.Offset()
	b.record(num, entry{offset: offset})
	dict := b.xrefStreamDict(trailer, func(entry) bool { return true })
	data := dict["data"].(core.String)
	delete(dict, "data")
	b.streamPlain(num, dict, []byte(data))
	return b.finish(offset)
}

// HybridXref closes the revision the way hybrid files do: compressed
// entries go to a cross-reference stream numbered streamNum that is only
// reachable through /XRefStm of the classic trailer.
func (b *Builder) HybridXref(streamNum int, trailer core.Dict) *Builder {
	stmOffset := b.Offset()
	compressed := map[int]entry{}
	for n, e := range b.pending {
		if e.compressed {
			compressed[n] = e
		}
	}
	dict := b.xrefStreamDict(core.Dict{"Size": core.Int(b.maxNum + 2)}, func(e entry) bool { return e.compressed })
	data := dict["data"].(core.String)
	delete(dict, "data")
	delete(dict, "Prev")
	b.streamPlain(streamNum, dict, []byte(data))
	for n := range compressed {
		delete(b.pending, n)
	}
	b.record(streamNum, entry{offset: stmOffset})

	t := core.Dict{}
	for k, v := range trailer {
		t[k] = v
	}
	t["XRefStm"] = core.Int(stmOffset)
	return b.Xref(t)
}

// streamPlain writes a stream without encrypting it.
func (b *Builder) streamPlain(num int, dict core.Dict, data []byte) {
	dict["Length"] = core.Int(len(data))
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nstream\n", num, Format(dict))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

func (b *Builder) xrefStreamDict(trailer core.Dict, include func(entry) bool) core.Dict {
	var data bytes.Buffer
	index := core.Array{}
	for _, sec := range b.sections(include) {
		index = append(index, core.Int(sec[0]), core.Int(len(sec)))
		for _, n := range sec {
			e, ok := b.pending[n]
			switch {
			case n == 0 && !ok:
				data.Write([]byte{0, 0, 0, 0, 0, 0xFF, 0xFF})
			case e.compressed:
				data.Write([]byte{2, byte(e.container >> 24), byte(e.container >> 16), byte(e.container >> 8), byte(e.container), byte(e.index >> 8), byte(e.index)})
			default:
				data.Write([]byte{1, byte(e.offset >> 24), byte(e.offset >> 16), byte(e.offset >> 8), byte(e.offset), 0, 0})
			}
		}
	}
	dict := b.trailer(trailer)
	dict["Type"] = core.Name("XRef")
	dict["W"] = core.Array{core.Int(1), core.Int(4), core.Int(2)}
	dict["Index"] = index
	dict["Filter"] = core.Name("FlateDecode")
	dict["data"] = core.String(Deflate(data.Bytes()))
	return dict
}

func (b *Builder) finish(offset int64) *Builder {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", offset)
	b.lastXref = offset
	b.pending = map[int]entry{}
	return b
}

// Bytes returns the document built so far.
func (b *Builder) Bytes() []byte {
	return append([]byte{}, b.buf.Bytes()...)
}

// Deflate compresses data with zlib.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Format writes obj in document syntax. Strings are written in hex so any
// bytes survive. Streams cannot be formatted inline.
func Format(obj core.Object) string {
	var buf bytes.Buffer
	format(&buf, obj)
	return buf.String()
}

func format(buf *bytes.Buffer, obj core.Object) {
	switch v := obj.(type) {
	case nil, core.Null:
		buf.WriteString("null")
	case core.Bool:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case core.Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case core.Real:
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case core.String:
		fmt.Fprintf(buf, "<%X>", []byte(v))
	case core.Name:
		buf.WriteByte('/')
		for i := 0; i < len(v); i++ {
			c := v[i]
			if c < 0x21 || c > 0x7E || c == '#' || core.IsDelimiter(c) {
				fmt.Fprintf(buf, "#%02X", c)
			} else {
				buf.WriteByte(c)
			}
		}
	case core.IndirectRef:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	case core.Array:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			format(buf, e)
		}
		buf.WriteByte(']')
	case core.Dict:
		buf.WriteString("<<")
		for _, k := range v.Keys() {
			format(buf, core.Name(k))
			buf.WriteByte(' ')
			format(buf, v[k])
		}
		buf.WriteString(">>")
	default:
		panic(fmt.Sprintf("testpdf: cannot format %T", obj))
	}
}
