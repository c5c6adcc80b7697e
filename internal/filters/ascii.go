package filters

import (
	"bytes"

	"github.com/pkg/errors"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data.
// Whitespace is ignored, > marks end of data and an odd final digit is
// padded with zero.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	odd := false
	for i, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			break
		}
		v, ok := hexDigit(c)
		if !ok {
			return nil, errors.Errorf("ASCIIHexDecode: invalid digit %q at %d", c, i)
		}
		if odd {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		odd = !odd
	}
	if odd {
		out = append(out, hi<<4)
	}
	return out, nil
}

// ASCII85Decode decodes ASCII base-85 encoded data. Groups of five
// characters in !..u encode four bytes, z stands for four zero bytes and
// ~> ends the data. A leading <~ is accepted.
func ASCII85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimLeft(data, " \t\r\n\f\x00")
	data = bytes.TrimPrefix(data, []byte("<~"))

	var out bytes.Buffer
	var group [5]uint32
	n := 0
	flush := func(count int) {
		for i := count; i < 5; i++ {
			group[i] = 84 // pad with 'u'
		}
		v := uint32(0)
		for _, d := range group {
			v = v*85 + d
		}
		word := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		out.Write(word[:count-1])
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			// end of data, with or without the closing >
			i = len(data)
			continue
		case c == 'z' && n == 0:
			out.Write([]byte{0, 0, 0, 0})
			continue
		case c < '!' || c > 'u':
			return nil, errors.Errorf("ASCII85Decode: invalid character %q at %d", c, i)
		}
		group[n] = uint32(c - '!')
		n++
		if n == 5 {
			flush(5)
			n = 0
		}
	}
	// a lone trailing character carries no data
	if n > 1 {
		flush(n)
	}
	return out.Bytes(), nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
