package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/midbel/hexdump"
)

// snippetLen is the number of bytes captured around an offending offset.
const snippetLen = 32

// Warning records one tolerated anomaly found while loading a document.
type Warning struct {
	Component string      // lexer, parser, xref, security, filter, pages, content
	Offset    int64       // byte offset in the file, -1 when unknown
	Object    IndirectRef // owning object, zero when unknown
	Message   string
	Snippet   string // hexdump of the bytes at Offset, if captured
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Component)
	b.WriteString(": ")
	b.WriteString(w.Message)
	if w.Object.Number > 0 {
		fmt.Fprintf(&b, " (object %s)", w.Object)
	}
	if w.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", w.Offset)
	}
	return b.String()
}

// Warnings collects the tolerated anomalies of one load. A nil *Warnings
// discards everything, so components can be used without a collector.
type Warnings struct {
	list   []Warning
	logger *slog.Logger
}

// NewWarnings creates a collector that also logs each warning at debug
// level. A nil logger disables logging.
func NewWarnings(logger *slog.Logger) *Warnings {
	return &Warnings{logger: logger}
}

// Add appends a warning.
func (w *Warnings) Add(warn Warning) {
	if w == nil {
		return
	}
	w.list = append(w.list, warn)
	if w.logger != nil {
		w.logger.LogAttrs(context.Background(), slog.LevelDebug, warn.Message,
			slog.String("component", warn.Component),
			slog.Int64("offset", warn.Offset),
			slog.String("object", warn.Object.String()),
		)
	}
}

// Addf appends a warning without position information.
func (w *Warnings) Addf(component string, format string, args ...interface{}) {
	w.Add(Warning{Component: component, Offset: -1, Message: fmt.Sprintf(format, args...)})
}

// AddAt appends a warning with a byte offset and a hexdump of data at that
// offset.
func (w *Warnings) AddAt(component string, data []byte, offset int64, format string, args ...interface{}) {
	w.Add(Warning{
		Component: component,
		Offset:    offset,
		Message:   fmt.Sprintf(format, args...),
		Snippet:   Snippet(data, offset),
	})
}

// List returns the collected warnings in the order they were recorded.
func (w *Warnings) List() []Warning {
	if w == nil {
		return nil
	}
	out := make([]Warning, len(w.list))
	copy(out, w.list)
	return out
}

// Len returns the number of collected warnings.
func (w *Warnings) Len() int {
	if w == nil {
		return 0
	}
	return len(w.list)
}

// Snippet returns a hexdump of up to 32 bytes of data starting at offset.
func Snippet(data []byte, offset int64) string {
	if offset < 0 || offset >= int64(len(data)) {
		return ""
	}
	end := offset + snippetLen
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return hexdump.Dump(data[offset:end])
}
