package core

import (
	"github.com/pkg/errors"
)

// ObjectStream represents a PDF Object Stream (Type /ObjStm). Its decoded
// body starts with N pairs "objNum offset" followed, from byte /First, by
// the objects themselves. Decoding and the header are handled lazily.
type ObjectStream struct {
	stream  *Stream
	n       int
	first   int
	extends IndirectRef // zero when absent
	objects map[int]Object
	offsets []objectStreamOffset
	decoded []byte
}

// objectStreamOffset pairs an object number with its byte offset within the
// decoded data, relative to /First.
type objectStreamOffset struct {
	ObjNum int
	Offset int
}

// NewObjectStream wraps a stream with /Type /ObjStm, /N and /First.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, Errorf(KindMalformedStructure, "object stream is nil")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, Errorf(KindMalformedStructure, "stream %s is not an object stream (Type %q)", stream.Ref, t)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, Errorf(KindMalformedStructure, "object stream %s: invalid /N", stream.Ref)
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, Errorf(KindMalformedStructure, "object stream %s: invalid /First", stream.Ref)
	}
	os := &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		objects: make(map[int]Object),
	}
	if ref, ok := stream.Dict.GetIndirectRef("Extends"); ok {
		os.extends = ref
	}
	return os, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int { return os.n }

// First returns the byte offset to the first object's data in the decoded stream.
func (os *ObjectStream) First() int { return os.first }

// Extends returns the object stream this one extends, or the zero ref.
func (os *ObjectStream) Extends() IndirectRef { return os.extends }

func (os *ObjectStream) decode() error {
	if os.offsets != nil {
		return nil
	}
	decoded, err := os.stream.Decode()
	if err != nil {
		return errors.Wrapf(err, "object stream %s", os.stream.Ref)
	}
	os.decoded = decoded
	return os.parseHeader()
}

func (os *ObjectStream) parseHeader() error {
	if os.first > len(os.decoded) {
		return Errorf(KindMalformedStructure, "object stream %s: /First %d beyond %d decoded bytes", os.stream.Ref, os.first, len(os.decoded))
	}
	lex := NewLexer(os.decoded[:os.first])
	// each pair takes at least four bytes, so /N cannot outgrow the header
	offsets := make([]objectStreamOffset, 0, min(os.n, os.first/4+1))
	for i := 0; i < os.n; i++ {
		num := lex.NextToken()
		off := lex.NextToken()
		if num.Type != TokenInteger || off.Type != TokenInteger {
			return Errorf(KindMalformedStructure, "object stream %s: bad header pair %d", os.stream.Ref, i)
		}
		offsets = append(offsets, objectStreamOffset{ObjNum: int(num.Int), Offset: int(off.Int)})
	}
	os.offsets = offsets
	return nil
}

// GetObjectByIndex extracts an object by its index within the stream (0-based).
// Returns the object and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, Errorf(KindMalformedStructure, "object stream %s: index %d out of range [0, %d)", os.stream.Ref, index, len(os.offsets))
	}
	num := os.offsets[index].ObjNum
	if obj, ok := os.objects[index]; ok {
		return obj, num, nil
	}

	offset := os.first + os.offsets[index].Offset
	if offset < 0 || offset >= len(os.decoded) {
		return nil, 0, Errorf(KindMalformedStructure, "object stream %s: offset %d beyond %d decoded bytes", os.stream.Ref, offset, len(os.decoded))
	}
	// objects inside an object stream are never streams themselves
	obj, err := NewParserAt(os.decoded, int64(offset)).ParseObject()
	if err != nil {
		return nil, 0, errors.Wrapf(err, "object %d in object stream %s", num, os.stream.Ref)
	}
	os.objects[index] = obj
	return obj, num, nil
}

// GetObjectByNumber finds and extracts an object by its object number.
// Returns the object and its index within the stream.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, Errorf(KindMalformedStructure, "object %d not found in object stream %s", objNum, os.stream.Ref)
}

// ObjectNumbers returns the object numbers stored in this stream, in
// header order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums, nil
}
