package core

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/internal/filters"
)

// Decryptor removes encryption from raw stream bytes before the filter chain
// runs.
type Decryptor func(data []byte) ([]byte, error)

// Stream represents a PDF stream: a dictionary plus the raw bytes between
// "stream" and "endstream". Data is never modified; the decoded form is
// computed on first use and cached.
type Stream struct {
	Dict Dict
	Data []byte
	Ref  IndirectRef // owning indirect object, zero for unknown

	decrypt Decryptor
	refs    ReferenceResolver

	done      bool
	decoded   []byte
	codec     filters.Kind
	decodeErr error
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream(%d bytes) %s", len(s.Data), s.Dict)
}

// SetDecryptor installs the decryption step. It must be called before the
// first Decode.
func (s *Stream) SetDecryptor(fn Decryptor) {
	s.decrypt = fn
}

// SetReferenceResolver installs the resolver used for indirect /Filter and
// /DecodeParms entries. The parser sets it on every stream it builds.
func (s *Stream) SetReferenceResolver(refs ReferenceResolver) {
	s.refs = refs
}

// WithDict returns a stream that shares s's data, decryption and resolver
// but has a different dictionary.
func (s *Stream) WithDict(d Dict) *Stream {
	return &Stream{Dict: d, Data: s.Data, Ref: s.Ref, decrypt: s.decrypt, refs: s.refs}
}

// Filters returns the stream's filter chain with the matching decode
// parameters.
func (s *Stream) Filters() ([]filters.Spec, error) {
	return FilterChain(s.Dict.Get("Filter"), s.Dict.Get("DecodeParms"), s.refs)
}

// FilterChain builds a filter chain from a /Filter value (name or array) and
// its /DecodeParms (dictionary, array or null). References at either level
// are resolved through refs; without one they are rejected.
func FilterChain(filterObj, paramsObj Object, refs ReferenceResolver) ([]filters.Spec, error) {
	filterObj, err := resolveShallow(refs, filterObj)
	if err != nil {
		return nil, errors.Wrap(err, "/Filter")
	}
	paramsObj, err = resolveShallow(refs, paramsObj)
	if err != nil {
		return nil, errors.Wrap(err, "/DecodeParms")
	}

	var names []Name
	switch f := filterObj.(type) {
	case nil, Null:
		return nil, nil
	case Name:
		names = []Name{f}
	case Array:
		for i, item := range f {
			item, err := resolveShallow(refs, item)
			if err != nil {
				return nil, errors.Wrapf(err, "filter %d", i)
			}
			n, ok := item.(Name)
			if !ok {
				return nil, Errorf(KindUnsupportedFilter, "filter %d is %T, not a name", i, item)
			}
			names = append(names, n)
		}
	default:
		return nil, Errorf(KindUnsupportedFilter, "invalid /Filter type %T", filterObj)
	}

	chain := make([]filters.Spec, 0, len(names))
	for i, name := range names {
		kind, err := filters.Lookup(string(name))
		if err != nil {
			return nil, WrapKind(KindUnsupportedFilter, err, "filter chain")
		}
		var params Dict
		switch p := paramsObj.(type) {
		case Dict:
			params = p
		case Array:
			if i < len(p) {
				item, err := resolveShallow(refs, p[i])
				if err != nil {
					return nil, errors.Wrapf(err, "decode parameters %d", i)
				}
				params, _ = item.(Dict)
			}
		}
		chain = append(chain, filters.Spec{Kind: kind, Params: dictToParams(params)})
	}
	return chain, nil
}

// resolveShallow follows obj when it is a reference and refs is set.
func resolveShallow(refs ReferenceResolver, obj Object) (Object, error) {
	ref, ok := obj.(IndirectRef)
	if !ok || refs == nil {
		return obj, nil
	}
	return refs.ResolveReference(ref)
}

// Decrypted returns the stream bytes with encryption removed but filters
// still applied.
func (s *Stream) Decrypted() ([]byte, error) {
	if s.decrypt == nil {
		return s.Data, nil
	}
	out, err := s.decrypt(s.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "decrypt stream %s", s.Ref)
	}
	return out, nil
}

// Decode returns the stream data after decryption and the filter chain.
// If the chain ends in an image codec (DCT, JPX, JBIG2) the bytes are
// returned still in that codec's encoding; see DecodeImage. The result is
// cached, so repeated calls return the same bytes.
func (s *Stream) Decode() ([]byte, error) {
	data, _, err := s.DecodeImage()
	return data, err
}

// DecodeImage is Decode that also reports the image codec left applied to
// the data, or filters.KindNone.
func (s *Stream) DecodeImage() ([]byte, filters.Kind, error) {
	if !s.done {
		s.decoded, s.codec, s.decodeErr = s.decode()
		s.done = true
	}
	return s.decoded, s.codec, s.decodeErr
}

func (s *Stream) decode() ([]byte, filters.Kind, error) {
	chain, err := s.Filters()
	if err != nil {
		return nil, filters.KindNone, err
	}
	data, err := s.Decrypted()
	if err != nil {
		return nil, filters.KindNone, err
	}
	if len(chain) == 0 {
		return data, filters.KindNone, nil
	}
	out, codec, err := filters.Decode(data, chain)
	if err != nil {
		if errors.Is(err, filters.ErrUnsupported) {
			return nil, filters.KindNone, &Error{Kind: KindUnsupportedFilter, Msg: "stream " + s.Ref.String(), Err: err}
		}
		return nil, filters.KindNone, errors.Wrapf(err, "decode stream %s", s.Ref)
	}
	return out, codec, nil
}

// dictToParams converts a Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch obj := v.(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case Name:
			params[k] = string(obj)
		default:
			params[k] = v
		}
	}
	return params
}
