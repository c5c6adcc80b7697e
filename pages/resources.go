package pages

import (
	"github.com/tsawler/pdfcore/core"
)

// Resources looks up named resources (/Font, /XObject, /ExtGState,
// /ColorSpace, /Pattern, /Shading, /Properties) over a chain of resource
// dictionaries, nearest first. Categories are not merged: the first
// dictionary that defines a category supplies all of it.
type Resources struct {
	dicts    []core.Dict
	resolver ObjectResolver
}

// NewResources creates a lookup over dicts, nearest first.
func NewResources(resolver ObjectResolver, dicts ...core.Dict) *Resources {
	return &Resources{dicts: dicts, resolver: resolver}
}

// Dict returns the nearest resource dictionary, or nil.
func (r *Resources) Dict() core.Dict {
	if r == nil || len(r.dicts) == 0 {
		return nil
	}
	return r.dicts[0]
}

// Category returns the resolved category dictionary, such as /Font, from
// the first resource dictionary that defines it.
func (r *Resources) Category(category string) (core.Dict, bool) {
	if r == nil {
		return nil, false
	}
	for _, d := range r.dicts {
		obj := d.Get(category)
		if obj == nil {
			continue
		}
		resolved, err := r.resolver.Resolve(obj)
		if err != nil {
			return nil, false
		}
		dict, ok := resolved.(core.Dict)
		return dict, ok
	}
	return nil, false
}

// Lookup returns the resolved resource name in category.
func (r *Resources) Lookup(category, name string) (core.Object, bool) {
	cat, ok := r.Category(category)
	if !ok {
		return nil, false
	}
	obj := cat.Get(name)
	if obj == nil {
		return nil, false
	}
	resolved, err := r.resolver.Resolve(obj)
	if err != nil {
		return nil, false
	}
	if _, isNull := resolved.(core.Null); isNull {
		return nil, false
	}
	return resolved, true
}
