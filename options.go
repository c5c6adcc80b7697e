package pdfcore

import (
	"log/slog"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/reader"
)

// LoadOptions holds the configuration of a Loader.
type LoadOptions struct {
	// Page selection, 1-indexed; nil means all pages
	pages []int

	encryption reader.EncryptionPolicy
	inspect    bool
	truncate   bool // trust /Length over a scan for endstream
	logger     *slog.Logger
}

// defaultOptions returns the default load options.
func defaultOptions() LoadOptions {
	return LoadOptions{
		encryption: reader.WithPassword(""),
	}
}

// clone creates a deep copy of LoadOptions.
func (o LoadOptions) clone() LoadOptions {
	newOpts := o
	if o.pages != nil {
		newOpts.pages = make([]int, len(o.pages))
		copy(newOpts.pages, o.pages)
	}
	return newOpts
}

// readerOptions translates the options for reader.Load.
func (o LoadOptions) readerOptions() []reader.Option {
	opts := []reader.Option{reader.WithEncryption(o.encryption)}
	if o.inspect {
		opts = append(opts, reader.WithPurpose(reader.PurposeInspect))
	}
	if o.truncate {
		opts = append(opts, reader.WithLengthRecovery(core.RecoverTruncate))
	}
	if o.logger != nil {
		opts = append(opts, reader.WithLogger(o.logger))
	}
	return opts
}
