package resolver

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
)

// ObjectResolver expands indirect references inside dictionaries and
// arrays. Shallow resolution follows one reference; deep resolution
// expands the whole tree and fails with CYCLIC_REFERENCE when a branch
// leads back to an object it is already expanding.
type ObjectResolver struct {
	reader       ObjectReader
	visited      bitset.BitSet // objects on the current branch
	maxDepth     int
	currentDepth int
}

// ObjectReader interface allows the resolver to work with any reader.
// *Store implements it.
type ObjectReader interface {
	GetObject(objNum int) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		maxDepth: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj if it is an indirect reference.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	return r.resolve(obj, false)
}

// ResolveDeep recursively resolves all indirect references in dictionaries
// and arrays. Streams keep their data and get a resolved dictionary.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolve(obj, true)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	if r.currentDepth == 0 {
		r.visited.ClearAll()
	}
	if r.currentDepth >= r.maxDepth {
		return nil, core.Errorf(core.KindCyclicReference, "maximum resolution depth %d exceeded", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		n := uint(v.Number)
		if r.visited.Test(n) {
			return nil, core.Errorf(core.KindCyclicReference, "circular reference to object %s", v)
		}
		r.visited.Set(n)
		// siblings may share the object; only the current branch is guarded
		defer r.visited.Clear(n)

		resolved, err := r.reader.ResolveReference(v)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve %s", v)
		}
		if deep {
			r.currentDepth++
			resolved, err = r.resolve(resolved, deep)
			r.currentDepth--
			if err != nil {
				return nil, err
			}
		}
		return resolved, nil

	case core.Dict:
		if !deep {
			return v, nil
		}
		resolved := make(core.Dict, len(v))
		for key, value := range v {
			r.currentDepth++
			rv, err := r.resolve(value, deep)
			r.currentDepth--
			if err != nil {
				return nil, errors.Wrapf(err, "dict key /%s", key)
			}
			resolved[key] = rv
		}
		return resolved, nil

	case core.Array:
		if !deep {
			return v, nil
		}
		resolved := make(core.Array, len(v))
		for i, elem := range v {
			r.currentDepth++
			re, err := r.resolve(elem, deep)
			r.currentDepth--
			if err != nil {
				return nil, errors.Wrapf(err, "array element %d", i)
			}
			resolved[i] = re
		}
		return resolved, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}
		r.currentDepth++
		dict, err := r.resolve(v.Dict, deep)
		r.currentDepth--
		if err != nil {
			return nil, errors.Wrap(err, "stream dictionary")
		}
		return v.WithDict(dict.(core.Dict)), nil

	default:
		return obj, nil
	}
}

// Reset clears the visited set and depth counter
func (r *ObjectResolver) Reset() {
	r.visited.ClearAll()
	r.currentDepth = 0
}

// ResolveDict resolves the dictionary and all its values
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	defer r.Reset()
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}

// ResolveArray resolves all elements in the array
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	defer r.Reset()
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Array), nil
}

// ResolveReference resolves a single indirect reference without recursing
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	defer r.Reset()
	return r.reader.ResolveReference(ref)
}

// ResolveReferenceDeep resolves a reference and all nested references
func (r *ObjectResolver) ResolveReferenceDeep(ref core.IndirectRef) (core.Object, error) {
	defer r.Reset()
	return r.ResolveDeep(ref)
}

// GetObject loads an object by number
func (r *ObjectResolver) GetObject(objNum int) (core.Object, error) {
	return r.reader.GetObject(objNum)
}

// GetObjectResolvedDeep loads and fully resolves an object by number
func (r *ObjectResolver) GetObjectResolvedDeep(objNum int) (core.Object, error) {
	obj, err := r.reader.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	defer r.Reset()
	return r.ResolveDeep(obj)
}
