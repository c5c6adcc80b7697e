package pdfcore

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tsawler/pdfcore/model"
	"github.com/tsawler/pdfcore/reader"
)

// Loader provides a fluent interface for loading a document. Each
// configuration method returns a new Loader, so a partially configured
// Loader can be shared and extended safely.
type Loader struct {
	// Source
	path      string
	data      []byte
	fromBytes bool

	options LoadOptions
}

// clone creates a shallow copy of the Loader with a deep copy of options.
func (l *Loader) clone() *Loader {
	return &Loader{
		path:      l.path,
		data:      l.data,
		fromBytes: l.fromBytes,
		options:   l.options.clone(),
	}
}

// ============================================================================
// Configuration Methods (return new Loader instance)
// ============================================================================

// Password decrypts an encrypted document with s, tried as the user and
// then the owner password.
//
// Example:
//
//	text, _, err := pdfcore.Open("locked.pdf").Password("secret").Text()
func (l *Loader) Password(s string) *Loader {
	newL := l.clone()
	newL.options.encryption = reader.WithPassword(s)
	return newL
}

// Reject makes loading an encrypted document fail with an EncryptedPDF
// error, even when the empty password would open it.
func (l *Loader) Reject() *Loader {
	newL := l.clone()
	newL.options.encryption = reader.RejectEncrypted()
	return newL
}

// Ignore loads an encrypted document without decrypting it. Structure is
// available; strings and content streams stay encrypted. Combine with
// Inspect, since encrypted content does not decode.
func (l *Loader) Ignore() *Loader {
	newL := l.clone()
	newL.options.encryption = reader.IgnoreEncryption()
	return newL
}

// Inspect loads for structural inspection: page content is decoded on
// demand and decoding failures become warnings.
func (l *Loader) Inspect() *Loader {
	newL := l.clone()
	newL.options.inspect = true
	return newL
}

// TruncateStreams trusts a stream's /Length, clamped to the end of the
// file, instead of scanning for endstream when the two disagree.
func (l *Loader) TruncateStreams() *Loader {
	newL := l.clone()
	newL.options.truncate = true
	return newL
}

// Logger sets the structured logger for warnings and load events.
func (l *Loader) Logger(logger *slog.Logger) *Loader {
	newL := l.clone()
	newL.options.logger = logger
	return newL
}

// Pages restricts Text and Elements to the given pages (1-indexed).
// Multiple calls are cumulative.
//
// Example:
//
//	text, _, err := pdfcore.Open("doc.pdf").Pages(1, 3, 5).Text()
func (l *Loader) Pages(pages ...int) *Loader {
	newL := l.clone()
	newL.options.pages = append(newL.options.pages, pages...)
	return newL
}

// PageRange restricts Text and Elements to a range of pages (1-indexed,
// inclusive).
func (l *Loader) PageRange(start, end int) *Loader {
	newL := l.clone()
	for i := start; i <= end; i++ {
		newL.options.pages = append(newL.options.pages, i)
	}
	return newL
}

// ============================================================================
// Terminal Operations
// ============================================================================

// Load parses the document. The error, if any, carries a core.Kind.
func (l *Loader) Load() (*reader.Document, error) {
	opts := l.options.readerOptions()
	if l.fromBytes {
		return reader.Load(l.data, opts...)
	}
	if l.path == "" {
		return nil, fmt.Errorf("no file specified")
	}
	return reader.Open(l.path, opts...)
}

// PageCount returns the number of pages.
func (l *Loader) PageCount() (int, error) {
	doc, err := l.Load()
	if err != nil {
		return 0, err
	}
	return doc.PageCount(), nil
}

// Info returns the document information dictionary, decoded.
func (l *Loader) Info() (model.Metadata, []Warning, error) {
	doc, err := l.Load()
	if err != nil {
		return model.Metadata{}, nil, err
	}
	info := doc.Info()
	return info, doc.Warnings(), nil
}

// Text returns the text shown on the selected pages, one text run per
// line, with a blank line between pages.
//
// Example:
//
//	text, warnings, err := pdfcore.Open("document.pdf").Text()
func (l *Loader) Text() (string, []Warning, error) {
	doc, pages, err := l.selected()
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n"), doc.Warnings(), nil
}

// Elements returns the elements drawn on the selected pages, page after
// page, each page in paint order.
func (l *Loader) Elements() ([]model.Element, []Warning, error) {
	doc, pages, err := l.selected()
	if err != nil {
		return nil, nil, err
	}
	var out []model.Element
	for _, p := range pages {
		out = append(out, p.ContentElements()...)
	}
	return out, doc.Warnings(), nil
}

// selected loads the document and resolves the page selection.
func (l *Loader) selected() (*reader.Document, []*reader.Page, error) {
	doc, err := l.Load()
	if err != nil {
		return nil, nil, err
	}
	indices, err := l.resolvePages(doc.PageCount())
	if err != nil {
		return nil, nil, err
	}
	pages := make([]*reader.Page, len(indices))
	for i, idx := range indices {
		if pages[i], err = doc.Page(idx); err != nil {
			return nil, nil, err
		}
	}
	return doc, pages, nil
}

// resolvePages returns the selected 0-based page indices, sorted and
// without duplicates.
func (l *Loader) resolvePages(pageCount int) ([]int, error) {
	if len(l.options.pages) == 0 {
		pageIndices := make([]int, pageCount)
		for i := range pageIndices {
			pageIndices[i] = i
		}
		return pageIndices, nil
	}

	seen := make(map[int]bool)
	var pageIndices []int
	for _, p := range l.options.pages {
		if p < 1 || p > pageCount {
			return nil, fmt.Errorf("page %d out of range (1-%d)", p, pageCount)
		}
		if !seen[p-1] {
			seen[p-1] = true
			pageIndices = append(pageIndices, p-1)
		}
	}
	sort.Ints(pageIndices)
	return pageIndices, nil
}
