package reader

import (
	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/contentstream"
	"github.com/tsawler/pdfcore/graphicsstate"
	"github.com/tsawler/pdfcore/model"
	"github.com/tsawler/pdfcore/pages"
)

// Page is one page of a Document: its geometry from the page tree plus
// its decoded content and drawn elements.
type Page struct {
	*pages.Page
	doc *Document

	content  []byte
	decoded  bool
	elements []model.Element
	ran      bool
}

// decode loads the concatenated content streams once. Only an
// unsupported filter is an error; corrupt data is a warning.
func (p *Page) decode() error {
	if p.decoded {
		return nil
	}
	data, err := p.ContentData()
	if err != nil {
		return errors.Wrapf(err, "page %d", p.Number)
	}
	p.content = data
	p.decoded = true
	return nil
}

// Content returns the decoded, concatenated content streams. Pages of a
// document loaded for inspection decode on first use; a failure is
// recorded as a warning and yields no content.
func (p *Page) Content() []byte {
	if err := p.decode(); err != nil {
		p.doc.warnings.Addf("pages", "%v", err)
		p.decoded = true
	}
	return p.content
}

// ContentElements interprets the page content and returns what it draws
// in paint order. The result is computed once.
func (p *Page) ContentElements() []model.Element {
	if p.ran {
		return p.elements
	}
	p.ran = true

	content := p.Content()
	if len(content) == 0 {
		return nil
	}
	in := contentstream.NewInterpreter(p.doc.store,
		contentstream.WithWarnings(p.doc.warnings),
		contentstream.WithMaxFormDepth(p.doc.cfg.maxFormDepth),
		contentstream.WithSoftMaskResolution(p.doc.cfg.maskResolution),
	)
	p.elements = in.Run(content, p.Resources(), graphicsstate.NewGraphicsState())
	return p.elements
}

// Text returns the text of the page's Text elements, one run per line.
func (p *Page) Text() string {
	var out []byte
	for _, el := range p.ContentElements() {
		if t, ok := el.(*contentstream.Text); ok {
			out = append(out, t.Text...)
			out = append(out, '\n')
		}
	}
	return string(out)
}

// Images returns the page's Image elements, inline images included.
func (p *Page) Images() []*contentstream.Image {
	var out []*contentstream.Image
	for _, el := range p.ContentElements() {
		if img, ok := el.(*contentstream.Image); ok {
			out = append(out, img)
		}
	}
	return out
}
