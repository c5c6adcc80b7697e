package core

import (
	"bytes"
	"math"

	"github.com/tdewolff/parse/v2/strconv"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF         TokenType = iota
	TokenKeyword               // true, false, null, obj, R, operators, stray delimiters
	TokenInteger               // 123
	TokenReal                  // 3.14
	TokenString                // (hello)
	TokenHexString             // <48656C6C6F>
	TokenName                  // /Type
	TokenArrayStart            // [
	TokenArrayEnd              // ]
	TokenDictStart             // <<
	TokenDictEnd               // >>
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenKeyword:
		return "Keyword"
	case TokenInteger:
		return "Integer"
	case TokenReal:
		return "Real"
	case TokenString:
		return "String"
	case TokenHexString:
		return "HexString"
	case TokenName:
		return "Name"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	default:
		return "Unknown"
	}
}

// Token represents a lexical token. For strings and names Value holds the
// unescaped bytes; for numbers and keywords it holds the raw text.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // offset of the first byte of the token
	End   int64 // offset just past the token
	Int   int64
	Real  float64
}

// IsKeyword reports whether the token is the keyword kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Type == TokenKeyword && string(t.Value) == kw
}

// Number returns the numeric value of an integer or real token.
func (t Token) Number() (float64, bool) {
	switch t.Type {
	case TokenInteger:
		return float64(t.Int), true
	case TokenReal:
		return t.Real, true
	}
	return 0, false
}

// Lexer performs lexical analysis of PDF bytes held in memory. It never
// fails: malformed input degrades into keyword tokens and the end of the
// buffer yields TokenEOF.
type Lexer struct {
	data []byte
	pos  int
}

// NewLexer creates a new lexer positioned at the start of data
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// NewLexerAt creates a new lexer positioned at offset
func NewLexerAt(data []byte, offset int) *Lexer {
	l := &Lexer{data: data}
	l.SetPos(offset)
	return l
}

// Lex returns the token starting at or after offset and the offset just
// past it.
func Lex(data []byte, offset int) (Token, int) {
	l := NewLexerAt(data, offset)
	tok := l.NextToken()
	return tok, l.pos
}

// Pos returns the current offset
func (l *Lexer) Pos() int { return l.pos }

// SetPos moves the lexer, clamping to the buffer
func (l *Lexer) SetPos(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(l.data) {
		pos = len(l.data)
	}
	l.pos = pos
}

// Data returns the underlying buffer
func (l *Lexer) Data() []byte { return l.data }

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.SkipWhitespace()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Pos: int64(l.pos), End: int64(l.pos)}
	}

	start := l.pos
	b := l.data[l.pos]
	switch b {
	case '[':
		l.pos++
		return l.token(TokenArrayStart, start)
	case ']':
		l.pos++
		return l.token(TokenArrayEnd, start)
	case '(':
		return l.readString()
	case '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return l.token(TokenDictStart, start)
		}
		return l.readHexString()
	case '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return l.token(TokenDictEnd, start)
		}
		l.pos++
		return l.token(TokenKeyword, start)
	case ')', '{', '}':
		l.pos++
		return l.token(TokenKeyword, start)
	case '/':
		return l.readName()
	}
	return l.readRegular()
}

func (l *Lexer) token(t TokenType, start int) Token {
	return Token{Type: t, Value: l.data[start:l.pos], Pos: int64(start), End: int64(l.pos)}
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

// SkipWhitespace skips whitespace and comments
func (l *Lexer) SkipWhitespace() {
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) {
			l.pos++
			continue
		}
		if b == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

// readRegular reads a run of regular characters and classifies it as a
// number or a keyword. A run is a number only if all of it parses as a
// finite number and it contains at least one digit.
func (l *Lexer) readRegular() Token {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	text := l.data[start:l.pos]
	tok := Token{Type: TokenKeyword, Value: text, Pos: int64(start), End: int64(l.pos)}
	if bytes.IndexAny(text, "0123456789") < 0 {
		return tok
	}
	if i, n := strconv.ParseInt(text); n == len(text) {
		tok.Type = TokenInteger
		tok.Int = i
		tok.Real = float64(i)
		return tok
	}
	if f, n := strconv.ParseFloat(text); n == len(text) && !math.IsInf(f, 0) && !math.IsNaN(f) {
		tok.Type = TokenReal
		tok.Real = f
	}
	return tok
}

// readString reads a literal string, tracking nested parentheses and
// processing escapes. An unterminated string runs to the end of input.
func (l *Lexer) readString() Token {
	start := l.pos
	l.pos++ // (
	var buf bytes.Buffer
	depth := 1
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		switch b {
		case '(':
			depth++
			buf.WriteByte(b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: buf.Bytes(), Pos: int64(start), End: int64(l.pos)}
			}
			buf.WriteByte(b)
		case '\\':
			l.readEscape(&buf)
		case '\r':
			// end-of-line markers inside strings read as a single LF
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			buf.WriteByte('\n')
		default:
			buf.WriteByte(b)
		}
	}
	return Token{Type: TokenString, Value: buf.Bytes(), Pos: int64(start), End: int64(l.pos)}
}

func (l *Lexer) readEscape(buf *bytes.Buffer) {
	if l.pos >= len(l.data) {
		return
	}
	next := l.data[l.pos]
	l.pos++
	switch next {
	case 'n':
		buf.WriteByte('\n')
	case 'r':
		buf.WriteByte('\r')
	case 't':
		buf.WriteByte('\t')
	case 'b':
		buf.WriteByte('\b')
	case 'f':
		buf.WriteByte('\f')
	case '(', ')', '\\':
		buf.WriteByte(next)
	case '\r':
		// line continuation
		if l.pos < len(l.data) && l.data[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
	case '0', '1', '2', '3', '4', '5', '6', '7':
		val := int(next - '0')
		for i := 0; i < 2 && l.pos < len(l.data) && isOctalDigit(l.data[l.pos]); i++ {
			val = val*8 + int(l.data[l.pos]-'0')
			l.pos++
		}
		buf.WriteByte(byte(val))
	default:
		// unknown escape: the backslash is dropped
		buf.WriteByte(next)
	}
}

// readHexString reads a hexadecimal string. Whitespace is skipped, other
// non-hex bytes are ignored and an odd trailing nibble is padded with zero.
func (l *Lexer) readHexString() Token {
	start := l.pos
	l.pos++ // <
	var buf bytes.Buffer
	var hi byte
	odd := false
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		l.pos++
		if b == '>' {
			break
		}
		if !isHexDigit(b) {
			continue
		}
		if odd {
			buf.WriteByte(hi<<4 | hexValue(b))
		} else {
			hi = hexValue(b)
		}
		odd = !odd
	}
	if odd {
		buf.WriteByte(hi << 4)
	}
	return Token{Type: TokenHexString, Value: buf.Bytes(), Pos: int64(start), End: int64(l.pos)}
}

// readName reads a name, unescaping #xx sequences. A # not followed by two
// hex digits is kept literally.
func (l *Lexer) readName() Token {
	start := l.pos
	l.pos++ // /
	var buf bytes.Buffer
	for l.pos < len(l.data) {
		b := l.data[l.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		if b == '#' && l.pos+2 < len(l.data) && isHexDigit(l.peekAt(1)) && isHexDigit(l.peekAt(2)) {
			buf.WriteByte(hexValue(l.data[l.pos+1])<<4 | hexValue(l.data[l.pos+2]))
			l.pos += 3
			continue
		}
		buf.WriteByte(b)
		l.pos++
	}
	return Token{Type: TokenName, Value: buf.Bytes(), Pos: int64(start), End: int64(l.pos)}
}

// Helper functions

func isWhitespace(b byte) bool {
	// PDF whitespace: space, tab, LF, CR, FF, null
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

// IsWhitespace reports whether b is a PDF whitespace byte
func IsWhitespace(b byte) bool { return isWhitespace(b) }

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' || b == '[' || b == ']' ||
		b == '{' || b == '}' || b == '/' || b == '%'
}

// IsDelimiter reports whether b is a PDF delimiter byte
func IsDelimiter(b byte) bool { return isDelimiter(b) }

func isOctalDigit(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
