package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(input string) []Token {
	l := NewLexer([]byte(input))
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			return out
		}
		out = append(out, tok)
	}
}

func TestLexerNumbersAndKeywords(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		num   float64
	}{
		{"123", TokenInteger, 123},
		{"-17", TokenInteger, -17},
		{"+5", TokenInteger, 5},
		{"0", TokenInteger, 0},
		{"3.14", TokenReal, 3.14},
		{"-.5", TokenReal, -0.5},
		{"4.", TokenReal, 4},
		{"true", TokenKeyword, 0},
		{"obj", TokenKeyword, 0},
		{"T*", TokenKeyword, 0},
		{"-", TokenKeyword, 0},
		{".", TokenKeyword, 0},
		{"1.2.3", TokenKeyword, 0},
		{"12abc", TokenKeyword, 0},
		{"--5", TokenKeyword, 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := lexAll(tt.input)
			require.Len(t, toks, 1)
			assert.Equal(t, tt.typ, toks[0].Type)
			if n, ok := toks[0].Number(); ok {
				assert.InDelta(t, tt.num, n, 1e-9)
			}
			assert.Equal(t, tt.input, string(toks[0].Value))
		})
	}
}

func TestLexerPunctuation(t *testing.T) {
	toks := lexAll("<< /A [1 2] >> ] [")
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenDictStart, TokenName, TokenArrayStart, TokenInteger, TokenInteger,
		TokenArrayEnd, TokenDictEnd, TokenArrayEnd, TokenArrayStart,
	}, types)
}

func TestLexerStrayDelimitersAreKeywords(t *testing.T) {
	toks := lexAll("> ) { }")
	require.Len(t, toks, 4)
	for _, tok := range toks {
		assert.Equal(t, TokenKeyword, tok.Type)
	}
}

func TestLexerNames(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"/Type", "Type"},
		{"/A#20B", "A B"},
		{"/Lime#20Green", "Lime Green"},
		{"/paired#28#29parentheses", "paired()parentheses"},
		{"/bad#zz", "bad#zz"},
		{"/trail#4", "trail#4"},
		{"/", ""},
	}
	for _, tt := range tests {
		toks := lexAll(tt.input)
		require.Len(t, toks, 1, tt.input)
		assert.Equal(t, TokenName, toks[0].Type)
		assert.Equal(t, tt.want, string(toks[0].Value), tt.input)
	}

	// a name ends at the next delimiter
	toks := lexAll("/Name/Other(x)")
	require.Len(t, toks, 3)
	assert.Equal(t, "Name", string(toks[0].Value))
	assert.Equal(t, "Other", string(toks[1].Value))
}

func TestLexerLiteralStrings(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"simple", "(Hello)", "Hello"},
		{"nested", "(a (b (c)) d)", "a (b (c)) d"},
		{"escapes", `(\n\r\t\b\f\(\)\\)`, "\n\r\t\b\f()\\"},
		{"octal", `(\101\102\7\0011)`, "AB\x07\x011"},
		{"continuation", "(abc\\\ndef)", "abcdef"},
		{"continuation crlf", "(abc\\\r\ndef)", "abcdef"},
		{"crlf normalized", "(a\r\nb\rc)", "a\nb\nc"},
		{"unknown escape", `(\q)`, "q"},
		{"unterminated", "(abc", "abc"},
		{"empty", "()", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := lexAll(tt.input)
			require.Len(t, toks, 1)
			assert.Equal(t, TokenString, toks[0].Type)
			assert.Equal(t, tt.want, string(toks[0].Value))
		})
	}
}

func TestLexerHexStrings(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"<48656C6C6F>", "Hello"},
		{"<48 65 6c\n6c 6f>", "Hello"},
		{"<901FA>", "\x90\x1f\xa0"},
		{"<>", ""},
		{"<4", "\x40"},
	}
	for _, tt := range tests {
		toks := lexAll(tt.input)
		require.Len(t, toks, 1, tt.input)
		assert.Equal(t, TokenHexString, toks[0].Type)
		assert.Equal(t, tt.want, string(toks[0].Value), tt.input)
	}
}

func TestLexerCommentsAndWhitespace(t *testing.T) {
	toks := lexAll("% header comment\n1 %inline\r\n2\x00\f3")
	require.Len(t, toks, 3)
	for i, tok := range toks {
		assert.Equal(t, int64(i+1), tok.Int)
	}
}

func TestLexAtOffset(t *testing.T) {
	data := []byte("junk 42 obj")
	tok, next := Lex(data, 4)
	assert.Equal(t, TokenInteger, tok.Type)
	assert.Equal(t, int64(5), tok.Pos)
	assert.Equal(t, int64(7), tok.End)
	assert.Equal(t, 7, next)

	tok, next = Lex(data, next)
	assert.True(t, tok.IsKeyword("obj"))
	assert.Equal(t, len(data), next)

	tok, _ = Lex(data, len(data))
	assert.Equal(t, TokenEOF, tok.Type)

	// offsets past the end clamp instead of panicking
	tok, _ = Lex(data, 1000)
	assert.Equal(t, TokenEOF, tok.Type)
}

func TestLexerNeverPanics(t *testing.T) {
	inputs := []string{"", "(", "<", "<<", "/", "\\", "(\\", "(\\1", "<<<<>>>>", "]]]", "%"}
	for _, in := range inputs {
		assert.NotPanics(t, func() { lexAll(in) }, "%q", in)
	}
}
