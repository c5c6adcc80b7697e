package pages

import (
	"bytes"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/model"
)

// ObjectResolver interface for resolving indirect references
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// DefaultMediaBox is used when no MediaBox is found: US Letter.
var DefaultMediaBox = model.BBoxFromRect(0, 0, 612, 792)

// Box names accepted by Page.Box.
const (
	MediaBox = "MediaBox"
	CropBox  = "CropBox"
	BleedBox = "BleedBox"
	TrimBox  = "TrimBox"
	ArtBox   = "ArtBox"
)

// BoxNames lists the page boxes in the order Boxes reports them.
var BoxNames = []string{MediaBox, CropBox, BleedBox, TrimBox, ArtBox}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{dict: dict, resolver: resolver}
}

// Dict returns the catalog dictionary.
func (c *Catalog) Dict() core.Dict { return c.dict }

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Pages returns the page tree root
func (c *Catalog) Pages() (core.Dict, error) {
	ref := c.dict.Get("Pages")
	if ref == nil {
		return nil, core.Errorf(core.KindMalformedStructure, "catalog missing /Pages entry")
	}
	obj, err := c.resolver.Resolve(ref)
	if err != nil {
		return nil, errors.Wrap(err, "resolve /Pages")
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, core.Errorf(core.KindMalformedStructure, "invalid /Pages type: %T", obj)
	}
	return dict, nil
}

// Metadata returns the metadata stream, or nil if there is none.
func (c *Catalog) Metadata() (*core.Stream, error) {
	ref := c.dict.Get("Metadata")
	if ref == nil {
		return nil, nil
	}
	obj, err := c.resolver.Resolve(ref)
	if err != nil {
		return nil, errors.Wrap(err, "resolve /Metadata")
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, core.Errorf(core.KindMalformedStructure, "invalid /Metadata type: %T", obj)
	}
	return stream, nil
}

// Version returns the /Version entry, which overrides the header version
// when later.
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	warnings *core.Warnings
	pages    []*Page // flattened on first use
}

// NewPageTree creates a new page tree from the root pages dictionary.
// Tolerated anomalies are recorded on warnings, which may be nil.
func NewPageTree(root core.Dict, resolver ObjectResolver, warnings *core.Warnings) *PageTree {
	return &PageTree{root: root, resolver: resolver, warnings: warnings}
}

// Count returns the /Count declared by the root. It may disagree with
// the number of leaves actually found.
func (t *PageTree) Count() int {
	n, _ := t.root.GetInt("Count")
	return int(n)
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	all, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(all) {
		return nil, errors.Errorf("page index %d out of range [0, %d)", index, len(all))
	}
	return all[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages != nil {
		return t.pages, nil
	}
	w := walker{tree: t, pages: []*Page{}}
	if err := w.visit(t.root, core.IndirectRef{}, nil); err != nil {
		return nil, errors.Wrap(err, "page tree")
	}
	if n := t.Count(); n != len(w.pages) {
		t.warnings.Addf("pages", "page tree declares /Count %d but has %d pages", n, len(w.pages))
	}
	t.pages = w.pages
	return t.pages, nil
}

// walker flattens the tree. path holds the nodes on the current branch, to
// tell a cycle from a page that is merely listed twice.
type walker struct {
	tree  *PageTree
	pages []*Page
	path  bitset.BitSet
	seen  bitset.BitSet
}

// visit handles one node. ancestors holds the node's parents, nearest
// first.
func (w *walker) visit(node core.Dict, ref core.IndirectRef, ancestors []core.Dict) error {
	kind, _ := node.GetName("Type")
	if kind == "" {
		kind = "Page"
		if node.Has("Kids") {
			kind = "Pages"
		}
		w.tree.warnings.Add(core.Warning{Component: "pages", Offset: -1, Object: ref, Message: "page tree node without /Type; assuming /" + string(kind)})
	}
	if kind != "Pages" {
		if kind != "Page" {
			w.tree.warnings.Add(core.Warning{Component: "pages", Offset: -1, Object: ref, Message: "unexpected page tree node /Type /" + string(kind) + "; treated as a page"})
		}
		w.pages = append(w.pages, NewPage(len(w.pages)+1, ref, node, ancestors, w.tree.resolver, w.tree.warnings))
		return nil
	}

	kidsObj, err := w.tree.resolver.Resolve(node.Get("Kids"))
	if err != nil {
		return err
	}
	kids, ok := kidsObj.(core.Array)
	if !ok {
		w.tree.warnings.Add(core.Warning{Component: "pages", Offset: -1, Object: ref, Message: "/Pages node without /Kids array"})
		return nil
	}
	chain := append([]core.Dict{node}, ancestors...)
	for i, kid := range kids {
		kidRef, _ := kid.(core.IndirectRef)
		if kidRef.Number > 0 {
			n := uint(kidRef.Number)
			if w.path.Test(n) {
				return core.Errorf(core.KindCyclicReference, "page tree node %s is its own ancestor", kidRef)
			}
			if w.seen.Test(n) {
				w.tree.warnings.Add(core.Warning{Component: "pages", Offset: -1, Object: kidRef, Message: "page tree node listed more than once; skipped"})
				continue
			}
		}
		obj, err := w.tree.resolver.Resolve(kid)
		if err != nil {
			return errors.Wrapf(err, "kid %d", i)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			w.tree.warnings.Add(core.Warning{Component: "pages", Offset: -1, Object: ref, Message: "page tree kid is not a dictionary; skipped"})
			continue
		}
		if kidRef.Number > 0 {
			n := uint(kidRef.Number)
			w.seen.Set(n)
			w.path.Set(n)
			err = w.visit(dict, kidRef, chain)
			w.path.Clear(n)
		} else {
			err = w.visit(dict, kidRef, chain)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Page is one leaf of the page tree with its inherited attributes
// resolved. It does not change after construction.
type Page struct {
	Number int // 1-based
	Ref    core.IndirectRef

	MediaBox model.BBox
	CropBox  model.BBox
	BleedBox model.BBox
	TrimBox  model.BBox
	ArtBox   model.BBox

	Rotate   int // one of 0, 90, 180, 270
	UserUnit float64

	dict      core.Dict
	ancestors []core.Dict
	resolver  ObjectResolver
	warnings  *core.Warnings
	resources *Resources
}

// NewPage resolves the page's attributes. ancestors are the /Pages
// nodes above it, nearest first.
func NewPage(number int, ref core.IndirectRef, dict core.Dict, ancestors []core.Dict, resolver ObjectResolver, warnings *core.Warnings) *Page {
	p := &Page{
		Number:    number,
		Ref:       ref,
		dict:      dict,
		ancestors: ancestors,
		resolver:  resolver,
		warnings:  warnings,
	}

	media, ok := p.box(MediaBox)
	if !ok {
		p.warnf("page has no valid /MediaBox; using US Letter")
		media = DefaultMediaBox
	}
	p.MediaBox = media

	p.CropBox = media
	if crop, ok := p.box(CropBox); ok {
		if clipped := crop.Intersection(media); clipped.IsValid() {
			p.CropBox = clipped
		} else {
			p.warnf("/CropBox lies outside /MediaBox; ignored")
		}
	}
	p.BleedBox = p.boxOr(BleedBox, p.CropBox)
	p.TrimBox = p.boxOr(TrimBox, p.CropBox)
	p.ArtBox = p.boxOr(ArtBox, p.CropBox)

	p.Rotate = p.rotation()
	p.UserUnit = 1
	if u, ok := p.number(dict.Get("UserUnit")); ok {
		if u > 0 {
			p.UserUnit = u
		} else {
			p.warnf("ignoring non-positive /UserUnit %g", u)
		}
	}

	var dicts []core.Dict
	for _, node := range p.chain() {
		if res, ok := p.resourceDict(node.Get("Resources")); ok {
			dicts = append(dicts, res)
		}
	}
	p.resources = NewResources(resolver, dicts...)
	return p
}

func (p *Page) warnf(format string, args ...interface{}) {
	p.warnings.Add(core.Warning{
		Component: "pages",
		Offset:    -1,
		Object:    p.Ref,
		Message:   fmt.Sprintf(format, args...),
	})
}

// chain returns the page dictionary followed by its ancestors.
func (p *Page) chain() []core.Dict {
	return append([]core.Dict{p.dict}, p.ancestors...)
}

// inherited returns the value of key on the page or the nearest ancestor
// that defines it.
func (p *Page) inherited(key string) core.Object {
	for _, node := range p.chain() {
		if v := node.Get(key); v != nil {
			return v
		}
	}
	return nil
}

// box returns the named box from the page or its nearest defining
// ancestor. Malformed boxes are reported and treated as absent.
func (p *Page) box(name string) (model.BBox, bool) {
	obj := p.inherited(name)
	if obj == nil {
		return model.BBox{}, false
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		p.warnf("resolve /%s: %v", name, err)
		return model.BBox{}, false
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		p.warnf("invalid /%s %s", name, resolved)
		return model.BBox{}, false
	}
	var v [4]float64
	for i, elem := range arr {
		f, ok := p.number(elem)
		if !ok {
			p.warnf("invalid /%s element %s", name, elem)
			return model.BBox{}, false
		}
		v[i] = f
	}
	b := model.BBoxFromRect(v[0], v[1], v[2], v[3])
	if !b.IsValid() {
		p.warnf("empty /%s", name)
		return model.BBox{}, false
	}
	return b, true
}

func (p *Page) boxOr(name string, def model.BBox) model.BBox {
	if b, ok := p.box(name); ok {
		return b
	}
	return def
}

func (p *Page) number(obj core.Object) (float64, bool) {
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return 0, false
	}
	return core.ToFloat(resolved)
}

func (p *Page) resourceDict(obj core.Object) (core.Dict, bool) {
	if obj == nil {
		return nil, false
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		p.warnf("resolve /Resources: %v", err)
		return nil, false
	}
	d, ok := resolved.(core.Dict)
	return d, ok
}

// rotation normalizes /Rotate to 0, 90, 180 or 270, rounding values that
// are not multiples of 90 to the nearest one.
func (p *Page) rotation() int {
	obj := p.inherited("Rotate")
	if obj == nil {
		return 0
	}
	r, ok := p.number(obj)
	if !ok {
		p.warnf("invalid /Rotate %s", obj)
		return 0
	}
	q := math.Round(r / 90)
	if q*90 != r {
		p.warnf("/Rotate %g is not a multiple of 90; using %g", r, q*90)
	}
	n := int(math.Mod(q, 4))
	if n < 0 {
		n += 4
	}
	return n * 90
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict { return p.dict }

// Box returns a page box by name.
func (p *Page) Box(name string) (model.BBox, bool) {
	switch name {
	case MediaBox:
		return p.MediaBox, true
	case CropBox:
		return p.CropBox, true
	case BleedBox:
		return p.BleedBox, true
	case TrimBox:
		return p.TrimBox, true
	case ArtBox:
		return p.ArtBox, true
	}
	return model.BBox{}, false
}

// Boxes returns every page box keyed by name.
func (p *Page) Boxes() map[string]model.BBox {
	out := make(map[string]model.BBox, len(BoxNames))
	for _, name := range BoxNames {
		out[name], _ = p.Box(name)
	}
	return out
}

// Width returns the displayed width: the CropBox width, or its height on
// pages rotated by 90 or 270 degrees, scaled by UserUnit.
func (p *Page) Width() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.CropBox.Height * p.UserUnit
	}
	return p.CropBox.Width * p.UserUnit
}

// Height returns the displayed height; see Width.
func (p *Page) Height() float64 {
	if p.Rotate == 90 || p.Rotate == 270 {
		return p.CropBox.Width * p.UserUnit
	}
	return p.CropBox.Height * p.UserUnit
}

// Resources returns the page's resource lookup.
func (p *Page) Resources() *Resources { return p.resources }

// Contents returns the page content streams in order. Entries that are
// not streams are reported and skipped.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, errors.Wrap(err, "resolve /Contents")
	}
	var items core.Array
	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		items = v
	case core.Null:
		return nil, nil
	default:
		p.warnf("invalid /Contents type %s", resolved.Type())
		return nil, nil
	}
	streams := make([]*core.Stream, 0, len(items))
	for i, item := range items {
		r, err := p.resolver.Resolve(item)
		if err != nil {
			return nil, errors.Wrapf(err, "resolve /Contents[%d]", i)
		}
		s, ok := r.(*core.Stream)
		if !ok {
			p.warnf("/Contents[%d] is %s, not a stream; skipped", i, r.Type())
			continue
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// ContentData decodes the content streams and joins them with a newline,
// since a token may not span two streams. A stream whose data is corrupt
// is reported and left out; an unsupported filter is an error.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, s := range streams {
		data, err := s.Decode()
		if err != nil {
			if core.KindOf(err) == core.KindUnsupportedFilter {
				return nil, errors.Wrapf(err, "page %d content", p.Number)
			}
			p.warnf("content stream %s: %v", s.Ref, err)
			continue
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
