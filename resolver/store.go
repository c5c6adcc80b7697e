package resolver

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
)

// Decrypter removes encryption from the strings and streams of one
// object. *security.Handler implements it.
type Decrypter interface {
	DecryptString(ref core.IndirectRef, data []byte) ([]byte, error)
	DecryptStream(ref core.IndirectRef, dict core.Dict, data []byte) ([]byte, error)
}

// Store is the object arena of one document: it looks objects up in the
// merged cross-reference table, parses them on first use and caches the
// result. Objects inside object streams are loaded through their
// container. A per-store in-progress set turns self-referential lookups
// into CYCLIC_REFERENCE errors.
//
// A Store is not safe for concurrent use.
type Store struct {
	data     []byte
	xref     *core.XRefTable
	warnings *core.Warnings
	policy   core.LengthPolicy

	decrypter  Decrypter
	encryptRef core.IndirectRef

	cache      map[int]core.Object
	objStms    map[int]*core.ObjectStream
	inProgress bitset.BitSet
}

// NewStore creates a store over the file bytes and its merged
// cross-reference table.
func NewStore(data []byte, xref *core.XRefTable, warnings *core.Warnings, policy core.LengthPolicy) *Store {
	return &Store{
		data:     data,
		xref:     xref,
		warnings: warnings,
		policy:   policy,
		cache:    make(map[int]core.Object),
		objStms:  make(map[int]*core.ObjectStream),
	}
}

// SetDecrypter enables decryption of every object except exempt (the
// /Encrypt dictionary). Objects cached before the call are dropped.
func (s *Store) SetDecrypter(d Decrypter, exempt core.IndirectRef) {
	s.decrypter = d
	s.encryptRef = exempt
	s.cache = make(map[int]core.Object)
	s.objStms = make(map[int]*core.ObjectStream)
}

// Trailer returns the merged trailer dictionary.
func (s *Store) Trailer() core.Dict { return s.xref.Trailer }

// XRef returns the merged cross-reference table.
func (s *Store) XRef() *core.XRefTable { return s.xref }

// Warnings returns the collector shared with the parser.
func (s *Store) Warnings() *core.Warnings { return s.warnings }

// ObjectCount returns the number of in-use cross-reference entries.
func (s *Store) ObjectCount() int {
	n := 0
	for _, e := range s.xref.Entries {
		if e.InUse() {
			n++
		}
	}
	return n
}

// GetObject loads an object by number with whatever generation the
// cross-reference table records.
func (s *Store) GetObject(objNum int) (core.Object, error) {
	entry, ok := s.xref.Get(objNum)
	if !ok {
		return core.Null{}, nil
	}
	return s.ResolveReference(core.IndirectRef{Number: objNum, Generation: entry.Generation})
}

// ResolveReference returns the object ref names. References with no
// in-use entry, or whose generation does not match, resolve to null.
func (s *Store) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := s.cache[ref.Number]; ok {
		return obj, nil
	}
	entry, ok := s.xref.Get(ref.Number)
	if !ok || !entry.InUse() || ref.Number <= 0 {
		return core.Null{}, nil
	}
	if entry.Type == core.XRefInUse && entry.Generation != ref.Generation {
		s.warnings.Add(core.Warning{
			Component: "xref",
			Offset:    entry.Offset,
			Object:    ref,
			Message:   "generation does not match cross-reference entry; reference is null",
		})
		return core.Null{}, nil
	}

	n := uint(ref.Number)
	if s.inProgress.Test(n) {
		return nil, core.Errorf(core.KindCyclicReference, "object %s refers to itself while being resolved", ref)
	}
	s.inProgress.Set(n)
	defer s.inProgress.Clear(n)

	var obj core.Object
	var err error
	if entry.Type == core.XRefCompressed {
		obj, err = s.loadCompressed(ref, entry)
	} else {
		obj, err = s.loadDirect(ref, entry)
	}
	if err != nil {
		return nil, err
	}
	s.cache[ref.Number] = obj
	return obj, nil
}

// Resolve dereferences obj when it is an indirect reference.
func (s *Store) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return s.ResolveReference(ref)
	}
	return obj, nil
}

// Dict resolves obj and returns it as a dictionary. A stream yields its
// dictionary.
func (s *Store) Dict(obj core.Object) (core.Dict, bool, error) {
	obj, err := s.Resolve(obj)
	if err != nil {
		return nil, false, err
	}
	switch v := obj.(type) {
	case core.Dict:
		return v, true, nil
	case *core.Stream:
		return v.Dict, true, nil
	}
	return nil, false, nil
}

// Stream resolves obj and returns it as a stream.
func (s *Store) Stream(obj core.Object) (*core.Stream, bool, error) {
	obj, err := s.Resolve(obj)
	if err != nil {
		return nil, false, err
	}
	st, ok := obj.(*core.Stream)
	return st, ok, nil
}

// Array resolves obj and returns it as an array.
func (s *Store) Array(obj core.Object) (core.Array, bool, error) {
	obj, err := s.Resolve(obj)
	if err != nil {
		return nil, false, err
	}
	a, ok := obj.(core.Array)
	return a, ok, nil
}

// Number resolves obj and returns it as a float.
func (s *Store) Number(obj core.Object) (float64, bool, error) {
	obj, err := s.Resolve(obj)
	if err != nil {
		return 0, false, err
	}
	f, ok := core.ToFloat(obj)
	return f, ok, nil
}

func (s *Store) loadDirect(ref core.IndirectRef, entry core.XRefEntry) (core.Object, error) {
	if entry.Offset < 0 || entry.Offset >= int64(len(s.data)) {
		s.warnings.Add(core.Warning{Component: "xref", Offset: entry.Offset, Object: ref,
			Message: "cross-reference offset outside the file; object is null"})
		return core.Null{}, nil
	}
	p := core.NewParserAt(s.data, entry.Offset)
	p.SetReferenceResolver(s)
	p.SetWarnings(s.warnings)
	p.SetLengthPolicy(s.policy)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		if core.KindOf(err) == core.KindCyclicReference {
			return nil, err
		}
		s.warnings.Add(core.Warning{Component: "parser", Offset: entry.Offset, Object: ref,
			Message: "unparseable object is null: " + err.Error(),
			Snippet: core.Snippet(s.data, entry.Offset)})
		return core.Null{}, nil
	}
	if ind.Ref.Number != ref.Number {
		s.warnings.Add(core.Warning{Component: "xref", Offset: entry.Offset, Object: ref,
			Message: "cross-reference entry points at object " + ind.Ref.String()})
	}

	obj := ind.Object
	if s.decrypter != nil && ref != s.encryptRef {
		obj = s.decrypt(ref, obj)
	}
	return obj, nil
}

// decrypt replaces every string in obj with its decrypted form and
// installs the stream decryptor. Cross-reference streams are exempt.
func (s *Store) decrypt(ref core.IndirectRef, obj core.Object) core.Object {
	switch v := obj.(type) {
	case core.String:
		out, err := s.decrypter.DecryptString(ref, []byte(v))
		if err != nil {
			s.warnings.Add(core.Warning{Component: "security", Offset: -1, Object: ref,
				Message: "string left encrypted: " + err.Error()})
			return v
		}
		return core.String(out)
	case core.Array:
		for i, e := range v {
			v[i] = s.decrypt(ref, e)
		}
		return v
	case core.Dict:
		for k, e := range v {
			v[k] = s.decrypt(ref, e)
		}
		return v
	case *core.Stream:
		if t, _ := v.Dict.GetName("Type"); t == "XRef" {
			return v
		}
		s.decrypt(ref, v.Dict)
		dict := v.Dict
		v.SetDecryptor(func(data []byte) ([]byte, error) {
			return s.decrypter.DecryptStream(ref, dict, data)
		})
		return v
	}
	return obj
}

func (s *Store) loadCompressed(ref core.IndirectRef, entry core.XRefEntry) (core.Object, error) {
	os, err := s.objectStream(entry.Container)
	if err != nil {
		if core.KindOf(err) == core.KindCyclicReference {
			return nil, err
		}
		s.warnings.Add(core.Warning{Component: "xref", Offset: -1, Object: ref,
			Message: errors.Wrapf(err, "object stream %d", entry.Container).Error() + "; object is null"})
		return core.Null{}, nil
	}

	obj, num, err := os.GetObjectByIndex(entry.Index)
	if err == nil && num != ref.Number {
		// stale index; fall back to the stream header
		obj, _, err = os.GetObjectByNumber(ref.Number)
	}
	if err != nil {
		s.warnings.Add(core.Warning{Component: "xref", Offset: -1, Object: ref,
			Message: err.Error() + "; object is null"})
		return core.Null{}, nil
	}
	return obj, nil
}

func (s *Store) objectStream(num int) (*core.ObjectStream, error) {
	if os, ok := s.objStms[num]; ok {
		return os, nil
	}
	obj, err := s.GetObject(num)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, core.Errorf(core.KindMalformedStructure, "object %d is %s, not an object stream", num, obj.Type())
	}
	os, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	s.objStms[num] = os
	return os, nil
}
