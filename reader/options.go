package reader

import (
	"io"
	"log/slog"

	"github.com/tsawler/pdfcore/contentstream"
	"github.com/tsawler/pdfcore/core"
)

// Purpose selects how much of a document Load processes.
type Purpose int

const (
	// PurposeParse decodes every page's content; an unsupported content
	// filter fails the load.
	PurposeParse Purpose = iota
	// PurposeInspect builds the cross-reference table, security state and
	// page tree only. Content is decoded on demand and a missing page tree
	// is a warning.
	PurposeInspect
)

func (p Purpose) String() string {
	if p == PurposeInspect {
		return "inspect"
	}
	return "parse"
}

type encryptionMode int

const (
	modePassword encryptionMode = iota
	modeReject
	modeIgnore
)

// EncryptionPolicy decides what Load does with an encrypted document.
type EncryptionPolicy struct {
	mode     encryptionMode
	password string
}

// RejectEncrypted fails the load of any encrypted document with
// ENCRYPTED_PDF.
func RejectEncrypted() EncryptionPolicy { return EncryptionPolicy{mode: modeReject} }

// IgnoreEncryption loads encrypted documents without decrypting them.
// Strings and streams come back as stored, which is enough for the page
// tree and geometry.
func IgnoreEncryption() EncryptionPolicy { return EncryptionPolicy{mode: modeIgnore} }

// WithPassword decrypts with secret, tried as the user and then the owner
// password. A password that validates as neither fails the load.
func WithPassword(secret string) EncryptionPolicy {
	return EncryptionPolicy{mode: modePassword, password: secret}
}

func (p EncryptionPolicy) String() string {
	switch p.mode {
	case modeReject:
		return "reject"
	case modeIgnore:
		return "ignore"
	}
	return "password"
}

// config holds the load options.
type config struct {
	purpose        Purpose
	encryption     EncryptionPolicy
	lengthPolicy   core.LengthPolicy
	logger         *slog.Logger
	maxFormDepth   int
	maskResolution int
}

func defaultConfig() config {
	return config{
		purpose:        PurposeParse,
		encryption:     WithPassword(""),
		lengthPolicy:   core.RecoverScanEndstream,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxFormDepth:   contentstream.DefaultMaxFormDepth,
		maskResolution: contentstream.DefaultSoftMaskResolution,
	}
}

// Option configures Load and Open.
type Option func(*config)

// WithPurpose sets the load purpose (default PurposeParse).
func WithPurpose(p Purpose) Option {
	return func(c *config) { c.purpose = p }
}

// WithEncryption sets the encryption policy (default WithPassword("")).
func WithEncryption(p EncryptionPolicy) Option {
	return func(c *config) { c.encryption = p }
}

// WithLengthRecovery sets how streams with a wrong /Length are read.
func WithLengthRecovery(p core.LengthPolicy) Option {
	return func(c *config) { c.lengthPolicy = p }
}

// WithLogger sets the logger. Warnings are logged at debug level and a
// successful load at info level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxFormDepth limits form XObject nesting.
func WithMaxFormDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxFormDepth = n
		}
	}
}

// WithSoftMaskResolution sets the longer side, in pixels, of rendered soft
// masks.
func WithSoftMaskResolution(px int) Option {
	return func(c *config) {
		if px > 0 {
			c.maskResolution = px
		}
	}
}
