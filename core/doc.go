// Package core holds the object model and byte-level machinery of a
// document: tokens, objects, streams, cross-reference sections, errors and
// warnings.
//
// # Objects
//
// Every parsed value satisfies [Object]: [Null], [Bool], [Int], [Real],
// [String], [Name], [Array], [Dict], [*Stream] and [IndirectRef]. Dict
// getters (GetName, GetInt, GetNumber, GetDict...) never resolve
// references; that is the resolver package's job.
//
// # Lexing and parsing
//
// [Lexer] works directly on the input slice and reports byte offsets, so
// callers can seek to an xref offset and lex from there. [Parser] builds
// objects from tokens, including "n g obj ... endobj" bodies and streams.
// A stream's /Length may be an indirect reference and is resolved through
// a [ReferenceResolver]; when it disagrees with the endstream keyword the
// [LengthPolicy] decides which wins.
//
// # Cross-reference sections
//
// [XRefParser] follows the startxref/Prev chain through classic tables,
// xref streams and hybrid files, newest revision first, and merges them
// into one [XRefTable]. If the chain is unusable it rebuilds the table by
// scanning for object headers.
//
// # Errors and warnings
//
// Fatal conditions are [*Error] values with a [Kind]; test them with
// [KindOf] or errors.Is against the Err* sentinels. Anomalies the loader
// tolerates go to a [Warnings] collector, which also logs them.
package core
