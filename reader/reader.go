package reader

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/pages"
	"github.com/tsawler/pdfcore/resolver"
	"github.com/tsawler/pdfcore/security"
)

// Version is a file format version such as 1.7.
type Version struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	return v.Major < o.Major || (v.Major == o.Major && v.Minor < o.Minor)
}

// headerWindow is how far into the file the %PDF- marker may start;
// some producers put junk before it.
const headerWindow = 1024

var versionPattern = regexp.MustCompile(`^%PDF-(\d+)\.(\d+)`)

// Document is a loaded document. It never changes after Load returns,
// except that page elements are interpreted on first request and their
// warnings are added then. A Document is not safe for concurrent use.
type Document struct {
	cfg      config
	data     []byte
	version  Version
	store    *resolver.Store
	warnings *core.Warnings
	handler  *security.Handler // nil unless decrypting
	catalog  core.Dict
	pages    []*Page

	encrypted bool
}

// Open reads a file and loads it.
func Open(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read document")
	}
	return Load(data, opts...)
}

// Load parses a document held in memory. On failure the error is a
// *core.Error of kind MalformedStructure, EncryptedPDF, UnsupportedFilter
// or CyclicReference, and no document is returned.
func Load(data []byte, opts ...Option) (*Document, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	d := &Document{
		cfg:      cfg,
		data:     data,
		warnings: core.NewWarnings(cfg.logger),
	}
	d.version = d.parseHeader()

	xp := core.NewXRefParser(data)
	xp.SetWarnings(d.warnings)
	xp.SetLengthPolicy(cfg.lengthPolicy)
	xref, err := xp.Parse()
	if err != nil {
		return nil, errors.Wrap(err, "load cross-reference table")
	}
	d.store = resolver.NewStore(data, xref, d.warnings, cfg.lengthPolicy)

	if err := d.setupSecurity(); err != nil {
		return nil, err
	}
	if err := d.loadCatalog(); err != nil {
		return nil, err
	}
	if err := d.loadPages(); err != nil {
		return nil, err
	}

	cfg.logger.Info("document loaded",
		"version", d.version.String(),
		"pages", len(d.pages),
		"objects", d.store.ObjectCount(),
		"encrypted", d.encrypted,
		"purpose", cfg.purpose.String(),
		"warnings", d.warnings.Len(),
	)
	return d, nil
}

// parseHeader reads the %PDF-x.y header. A missing header is tolerated;
// the version then defaults to 1.4 unless the catalog names one.
func (d *Document) parseHeader() Version {
	window := d.data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	i := bytes.Index(window, []byte("%PDF-"))
	if i < 0 {
		d.warnings.Addf("parser", "no %%PDF- header; assuming version 1.4")
		return Version{Major: 1, Minor: 4}
	}
	if i > 0 {
		d.warnings.AddAt("parser", d.data, 0, "%d bytes before the %%PDF- header", i)
	}
	m := versionPattern.FindSubmatch(d.data[i:])
	if m == nil {
		d.warnings.AddAt("parser", d.data, int64(i), "invalid version in header; assuming 1.4")
		return Version{Major: 1, Minor: 4}
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return Version{Major: major, Minor: minor}
}

// setupSecurity applies the encryption policy to an /Encrypt entry.
func (d *Document) setupSecurity() error {
	trailer := d.store.Trailer()
	encObj := trailer.Get("Encrypt")
	if encObj == nil {
		return nil
	}
	if _, ok := encObj.(core.Null); ok {
		return nil
	}
	d.encrypted = true

	switch d.cfg.encryption.mode {
	case modeReject:
		return core.Errorf(core.KindEncryptedPDF, "document is encrypted")
	case modeIgnore:
		d.warnings.Addf("security", "document is encrypted; strings and streams are left encrypted")
		return nil
	}

	encDict, ok, err := d.store.Dict(encObj)
	if err != nil {
		return errors.Wrap(err, "resolve /Encrypt")
	}
	if !ok {
		return core.Errorf(core.KindEncryptedPDF, "/Encrypt is not a dictionary")
	}
	h, err := security.NewHandler(encDict, trailer)
	if err != nil {
		return errors.Wrap(err, "read /Encrypt")
	}
	if err := h.Authenticate(d.cfg.encryption.password); err != nil {
		return errors.Wrap(err, "authenticate")
	}
	exempt, _ := encObj.(core.IndirectRef)
	d.store.SetDecrypter(h, exempt)
	d.handler = h
	return nil
}

func (d *Document) loadCatalog() error {
	root := d.store.Trailer().Get("Root")
	if root == nil {
		return core.Errorf(core.KindMalformedStructure, "trailer has no /Root")
	}
	catalog, ok, err := d.store.Dict(root)
	if err != nil {
		return errors.Wrap(err, "resolve /Root")
	}
	if !ok {
		return core.Errorf(core.KindMalformedStructure, "/Root is not a dictionary")
	}
	d.catalog = catalog

	if v, ok := catalog.GetName("Version"); ok {
		var cv Version
		if _, err := fmt.Sscanf(string(v), "%d.%d", &cv.Major, &cv.Minor); err == nil && d.version.Less(cv) {
			d.version = cv
		}
	}
	return nil
}

// loadPages flattens the page tree. When parsing, every page's content
// is decoded now so that an unsupported filter fails the load.
func (d *Document) loadPages() error {
	cat := pages.NewCatalog(d.catalog, d.store)
	root, err := cat.Pages()
	if err != nil {
		if d.cfg.purpose == PurposeInspect && core.KindOf(err) == core.KindMalformedStructure {
			d.warnings.Addf("pages", "no page tree: %v", err)
			return nil
		}
		return errors.Wrap(err, "load page tree")
	}
	all, err := pages.NewPageTree(root, d.store, d.warnings).Pages()
	if err != nil {
		return errors.Wrap(err, "load page tree")
	}

	d.pages = make([]*Page, len(all))
	for i, p := range all {
		d.pages[i] = &Page{Page: p, doc: d}
		if d.cfg.purpose == PurposeParse {
			if err := d.pages[i].decode(); err != nil {
				return err
			}
		}
	}
	return nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// Pages returns the pages in document order.
func (d *Document) Pages() []*Page {
	out := make([]*Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Page returns the page at a 0-based index.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, errors.Errorf("page index %d out of range [0, %d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

// Warnings returns every tolerated anomaly recorded so far.
func (d *Document) Warnings() []core.Warning { return d.warnings.List() }

// Version returns the header version, or the catalog /Version when later.
func (d *Document) Version() Version { return d.version }

// Trailer returns the merged trailer dictionary.
func (d *Document) Trailer() core.Dict { return d.store.Trailer() }

// Catalog returns the document catalog.
func (d *Document) Catalog() core.Dict { return d.catalog }

// Encrypted reports whether the document has an /Encrypt entry.
func (d *Document) Encrypted() bool { return d.encrypted }

// Permissions returns the access permissions. Documents that are not
// decrypted report everything permitted.
func (d *Document) Permissions() security.Permissions {
	if d.handler == nil {
		return security.NewPermissions(-1)
	}
	return d.handler.Permissions()
}

// ObjectCount returns the number of in-use cross-reference entries.
func (d *Document) ObjectCount() int { return d.store.ObjectCount() }

// Resolve dereferences an indirect reference; other objects are returned
// as they are.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	return d.store.Resolve(obj)
}

// Object loads an object by number.
func (d *Document) Object(num int) (core.Object, error) {
	return d.store.GetObject(num)
}

// ResolveDeep expands every indirect reference inside obj.
func (d *Document) ResolveDeep(obj core.Object) (core.Object, error) {
	return resolver.NewResolver(d.store).ResolveDeep(obj)
}
