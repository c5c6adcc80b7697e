package core

import (
	"bytes"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// maxNesting bounds array/dictionary nesting so hostile input cannot
// exhaust the stack.
const maxNesting = 512

// ReferenceResolver is an interface for resolving indirect references.
// The parser uses it to resolve indirect stream lengths.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// LengthPolicy selects how a stream whose /Length is missing or does not
// match the data is recovered. Every recovery is recorded as a warning.
type LengthPolicy int

const (
	// RecoverScanEndstream trusts /Length only when "endstream" follows the
	// declared data; otherwise the data runs to the next "endstream", or to
	// the end of the buffer when there is none.
	RecoverScanEndstream LengthPolicy = iota
	// RecoverTruncate trusts /Length and only clamps it to the end of the
	// buffer. "endstream" is scanned for only when /Length is absent.
	RecoverTruncate
)

func (p LengthPolicy) String() string {
	if p == RecoverTruncate {
		return "truncate"
	}
	return "scan-endstream"
}

var (
	kwEndstream = []byte("endstream")
)

// Parser parses PDF objects from an in-memory buffer using a Lexer for
// tokenization. Tokens are buffered so that "n g R" can be recognised by
// looking two tokens ahead.
type Parser struct {
	lexer    *Lexer
	ahead    []Token
	resolver ReferenceResolver
	warnings *Warnings
	policy   LengthPolicy
	current  IndirectRef // object being parsed, for warnings
	depth    int
}

// NewParser creates a new PDF parser positioned at the start of data.
func NewParser(data []byte) *Parser {
	return &Parser{lexer: NewLexer(data)}
}

// NewParserAt creates a new PDF parser positioned at offset.
func NewParserAt(data []byte, offset int64) *Parser {
	return &Parser{lexer: NewLexerAt(data, int(offset))}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetWarnings sets the collector that receives recovery diagnostics.
func (p *Parser) SetWarnings(w *Warnings) {
	p.warnings = w
}

// SetLengthPolicy selects the stream length recovery policy.
func (p *Parser) SetLengthPolicy(policy LengthPolicy) {
	p.policy = policy
}

// Seek repositions the parser and drops any buffered tokens.
func (p *Parser) Seek(offset int64) {
	p.ahead = p.ahead[:0]
	p.lexer.SetPos(int(offset))
}

// Pos returns the offset of the next unconsumed token.
func (p *Parser) Pos() int64 {
	if len(p.ahead) > 0 {
		return p.ahead[0].Pos
	}
	return int64(p.lexer.Pos())
}

func (p *Parser) peek(n int) Token {
	for len(p.ahead) <= n {
		p.ahead = append(p.ahead, p.lexer.NextToken())
	}
	return p.ahead[n]
}

func (p *Parser) next() Token {
	tok := p.peek(0)
	p.ahead = p.ahead[1:]
	return tok
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) error {
	err := Errorf(KindMalformedStructure, format, args...)
	return errors.Wrapf(err, "offset %d", tok.Pos)
}

// ParseObject parses and returns the next PDF object from the input.
// A dictionary followed by "stream" is returned as a *Stream.
func (p *Parser) ParseObject() (Object, error) {
	tok := p.next()
	switch tok.Type {
	case TokenEOF:
		return nil, p.errorf(tok, "unexpected end of input")

	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, p.errorf(tok, "unexpected keyword %q", tok.Value)

	case TokenInteger:
		// "n g R" is an indirect reference
		if second := p.peek(0); second.Type == TokenInteger && p.peek(1).IsKeyword("R") {
			p.next()
			p.next()
			return IndirectRef{Number: int(tok.Int), Generation: int(second.Int)}, nil
		}
		return Int(tok.Int), nil

	case TokenReal:
		return Real(tok.Real), nil

	case TokenString, TokenHexString:
		return String(tok.Value), nil

	case TokenName:
		return Name(tok.Value), nil

	case TokenArrayStart:
		return p.parseArray(tok)

	case TokenDictStart:
		dict, err := p.parseDict(tok)
		if err != nil {
			return nil, err
		}
		if kw := p.peek(0); kw.IsKeyword("stream") {
			p.next()
			return p.parseStream(dict, kw)
		}
		return dict, nil
	}
	return nil, p.errorf(tok, "unexpected token %s %q", tok.Type, tok.Value)
}

func (p *Parser) enter(tok Token) error {
	p.depth++
	if p.depth > maxNesting {
		return p.errorf(tok, "nesting deeper than %d", maxNesting)
	}
	return nil
}

// parseArray parses a PDF array "[obj1 obj2 ...]".
func (p *Parser) parseArray(open Token) (Object, error) {
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	arr := Array{}
	for {
		tok := p.peek(0)
		switch tok.Type {
		case TokenArrayEnd:
			p.next()
			return arr, nil
		case TokenEOF:
			return nil, p.errorf(open, "unterminated array")
		}
		obj, err := p.ParseObject()
		if err != nil {
			return nil, errors.Wrap(err, "array element")
		}
		arr = append(arr, obj)
	}
}

// parseDict parses a PDF dictionary "<< /Key value ... >>". A key without
// a value before ">>" is dropped with a warning.
func (p *Parser) parseDict(open Token) (Dict, error) {
	if err := p.enter(open); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	dict := make(Dict)
	for {
		tok := p.next()
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, p.errorf(open, "unterminated dictionary")
		case TokenName:
		default:
			return nil, p.errorf(tok, "dictionary key is %s %q, not a name", tok.Type, tok.Value)
		}
		key := string(tok.Value)

		if p.peek(0).Type == TokenDictEnd {
			p.warnf(tok.Pos, "dictionary key /%s has no value", key)
			continue
		}
		value, err := p.ParseObject()
		if err != nil {
			return nil, errors.Wrapf(err, "value of /%s", key)
		}
		// a null value is equivalent to an absent key
		if _, ok := value.(Null); ok {
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "num gen obj <object> endobj" at the current
// position. A missing endobj is tolerated with a warning.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok := p.next()
	genTok := p.next()
	objTok := p.next()
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger || !objTok.IsKeyword("obj") {
		return nil, p.errorf(numTok, "expected object header, got %q %q %q", numTok.Value, genTok.Value, objTok.Value)
	}
	ref := IndirectRef{Number: int(numTok.Int), Generation: int(genTok.Int)}

	saved := p.current
	p.current = ref
	defer func() { p.current = saved }()

	var obj Object
	if p.peek(0).IsKeyword("endobj") {
		// an empty body is read as null
		obj = Null{}
	} else {
		var err error
		obj, err = p.ParseObject()
		if err != nil {
			return nil, errors.Wrapf(err, "object %s", ref)
		}
	}
	if s, ok := obj.(*Stream); ok {
		s.Ref = ref
	}

	if end := p.peek(0); end.IsKeyword("endobj") {
		p.next()
	} else {
		p.warnf(end.Pos, "object %s: missing endobj", ref)
	}

	return &IndirectObject{Ref: ref, Object: obj, Offset: numTok.Pos}, nil
}

// parseStream reads the stream data following the "stream" keyword. The
// keyword is followed by CRLF or LF (a lone CR is tolerated). /Length may be
// an indirect reference; it is resolved through the reference resolver.
func (p *Parser) parseStream(dict Dict, kw Token) (*Stream, error) {
	data := p.lexer.Data()
	start := int(kw.End)
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}

	length, declared := p.streamLength(dict)
	end := -1
	if declared {
		past := length > len(data)-start
		if !past {
			end = start + length
		}
		switch {
		case past && p.policy == RecoverTruncate:
			p.warnf(kw.Pos, "stream /Length %d runs past end of input; truncated to %d bytes", length, len(data)-start)
			end = len(data)
		case past:
			end = -1
		case p.policy == RecoverScanEndstream && !endstreamAt(data, end):
			end = -1
		}
	}

	if end < 0 {
		idx := bytes.Index(data[start:], kwEndstream)
		if idx >= 0 {
			end = trimEOL(data, start, start+idx)
		} else {
			end = len(data)
		}
		switch {
		case declared && idx >= 0:
			p.warnf(kw.Pos, "stream /Length %d inconsistent with endstream; using %d bytes", length, end-start)
		case declared:
			p.warnf(kw.Pos, "stream /Length %d inconsistent and no endstream; truncated to %d bytes", length, end-start)
		case idx < 0:
			p.warnf(kw.Pos, "stream without /Length or endstream; truncated to %d bytes", end-start)
		}
	}

	stream := &Stream{Dict: dict, Data: data[start:end:end], Ref: p.current}
	if p.resolver != nil {
		stream.SetReferenceResolver(p.resolver)
	}

	// resume after endstream
	p.ahead = p.ahead[:0]
	if idx := bytes.Index(data[end:], kwEndstream); idx >= 0 {
		if idx > 2 && p.policy == RecoverTruncate {
			p.warnf(int64(end), "stream data followed by %d unexpected bytes before endstream", idx)
		}
		p.lexer.SetPos(end + idx + len(kwEndstream))
	} else {
		p.lexer.SetPos(len(data))
	}
	return stream, nil
}

// streamLength returns the declared /Length and whether it is usable.
func (p *Parser) streamLength(dict Dict) (int, bool) {
	obj := dict.Get("Length")
	if ref, ok := obj.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, false
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			p.warnf(-1, "stream length %s: %v", ref, err)
			return 0, false
		}
		obj = resolved
	}
	switch v := obj.(type) {
	case nil:
		return 0, false
	case Int:
		if v >= 0 {
			return int(v), true
		}
	case Real:
		if v >= 0 && v < 1<<53 && float64(v) == math.Trunc(float64(v)) {
			return int(v), true
		}
	}
	p.warnf(-1, "invalid stream /Length %s", objString(obj))
	return 0, false
}

// endstreamAt reports whether "endstream" follows offset, allowing only
// whitespace in between.
func endstreamAt(data []byte, offset int) bool {
	for offset < len(data) && isWhitespace(data[offset]) {
		offset++
	}
	return bytes.HasPrefix(data[offset:], kwEndstream)
}

// trimEOL drops one end-of-line marker preceding "endstream" at end.
func trimEOL(data []byte, start, end int) int {
	if end > start && data[end-1] == '\n' {
		end--
	}
	if end > start && data[end-1] == '\r' {
		end--
	}
	return end
}

func (p *Parser) warnf(offset int64, format string, args ...interface{}) {
	if p.warnings == nil {
		return
	}
	w := Warning{
		Component: "parser",
		Offset:    offset,
		Object:    p.current,
	}
	w.Message = fmt.Sprintf(format, args...)
	if offset >= 0 {
		w.Snippet = Snippet(p.lexer.Data(), offset)
	}
	p.warnings.Add(w)
}
