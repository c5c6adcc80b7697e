// Package resolver turns object numbers and indirect references into
// parsed objects.
//
// [Store] owns one document's object cache. It reads objects at their
// xref offsets or out of object streams, parses each object at most once,
// and decrypts strings and streams when a [Decrypter] is installed.
//
//	store := resolver.NewStore(data, xref, warnings, core.RecoverScanEndstream)
//	catalog, ok, err := store.Dict(store.Trailer().Get("Root"))
//
// An object whose parse needs itself, such as a stream whose /Length
// points at its own object, fails with a CyclicReference error rather
// than recursing.
//
// [ObjectResolver] expands references inside dictionaries and arrays:
//
//	deep, err := resolver.NewResolver(store).ResolveDeep(obj)
//
// Reference cycles are reported as errors, and nesting is bounded by
// WithMaxDepth.
package resolver
