// Package pages flattens the page tree and resolves each page's inherited
// attributes.
//
// # Page Tree
//
// PDF documents organize pages in a tree of /Pages nodes. [PageTree]
// walks it depth-first in /Kids order:
//
//	tree := pages.NewPageTree(pagesDict, resolver, warnings)
//	all, err := tree.Pages()
//	page, _ := tree.GetPage(0) // 0-indexed
//
// A node that is its own ancestor fails the walk with a cyclic-reference
// error. A node listed twice, a kid that is not a dictionary, a missing
// /Type or a wrong /Count is recorded as a warning and tolerated.
//
// # Page Attributes
//
// [Page] carries the five page boxes, Rotate and UserUnit:
//
//   - MediaBox is inherited and defaults to US Letter
//   - CropBox is inherited, defaults to MediaBox and is clipped to it
//   - BleedBox, TrimBox and ArtBox are inherited and default to CropBox
//   - Rotate is inherited and normalized to 0, 90, 180 or 270
//
// # Resources
//
// [Resources] looks names up over the page's /Resources and those of its
// ancestors. A category such as /Font comes entirely from the nearest
// dictionary that defines it; categories are never merged.
package pages
