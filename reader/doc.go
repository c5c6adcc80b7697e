// Package reader loads documents and exposes their pages and drawn
// content.
//
// This package orchestrates the lower-level packages: core builds the
// cross-reference table, resolver parses and caches objects, security
// removes encryption, pages walks the page tree and contentstream
// interprets page content.
//
// # Loading
//
// Use [Load] for a document in memory or [Open] for a file:
//
//	doc, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Load either returns a complete [Document] or an error whose kind can be
// read with core.KindOf: MalformedStructure, EncryptedPDF,
// UnsupportedFilter or CyclicReference. Anomalies that do not stop the
// load are collected and returned by [Document.Warnings].
//
// # Options
//
//   - WithPurpose(PurposeInspect) - skip content decoding
//   - WithEncryption(RejectEncrypted() | IgnoreEncryption() | WithPassword(s))
//   - WithLengthRecovery(core.RecoverTruncate) - trust /Length over endstream
//   - WithLogger(logger) - warnings at debug level, the load at info level
//   - WithMaxFormDepth(n), WithSoftMaskResolution(px) - interpreter limits
//
// # Document Information
//
//   - Version() - file format version (e.g., 1.7)
//   - PageCount(), Pages(), Page(i) - pages, 0-based
//   - Catalog(), Trailer() - root dictionaries
//   - Info() - decoded metadata
//   - Encrypted(), Permissions() - security state
//
// # Pages
//
// A [Page] carries its boxes and displayed size from the page tree, its
// decoded content and the elements that content draws:
//
//	page, _ := doc.Page(0)
//	for _, el := range page.ContentElements() {
//	    fmt.Println(el.Type(), el.BoundingBox())
//	}
//
// [DecodeImage] and [ToPNG] turn an image element into pixels.
package reader
