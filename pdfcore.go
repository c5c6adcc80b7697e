// Package pdfcore provides a fluent API for loading documents and reading
// what their pages draw.
//
// Basic usage:
//
//	text, warnings, err := pdfcore.Open("document.pdf").Text()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfcore.FormatWarnings(warnings))
//	}
//
// With options:
//
//	doc, err := pdfcore.Open("report.pdf").
//	    Password("secret").
//	    Inspect().
//	    Load()
//
// For advanced use cases, the lower-level reader package is also available.
package pdfcore

import (
	"strings"

	"github.com/tsawler/pdfcore/core"
)

// Warning is a tolerated anomaly recorded while loading or interpreting a
// document.
type Warning = core.Warning

// Open returns a Loader for the file at path. Nothing is read until a
// terminal operation such as Load or Text.
//
// Example:
//
//	text, warnings, err := pdfcore.Open("document.pdf").Text()
func Open(path string) *Loader {
	return &Loader{path: path, options: defaultOptions()}
}

// FromBytes returns a Loader for a document held in memory. The slice is
// not copied and must not be modified while the document is in use.
func FromBytes(data []byte) *Loader {
	return &Loader{data: data, fromBytes: true, options: defaultOptions()}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := pdfcore.Must(pdfcore.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustText is a helper that wraps a call to Text() or Elements() and
// panics if the error is non-nil. It discards warnings and returns just
// the value.
//
// Example:
//
//	text := pdfcore.MustText(pdfcore.Open("document.pdf").Text())
func MustText[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
