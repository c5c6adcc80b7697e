package filters

import (
	"bytes"

	"github.com/pkg/errors"
)

const (
	lzwClear    = 256
	lzwEOD      = 257
	lzwFirst    = 258
	lzwMinWidth = 9
	lzwMaxWidth = 12
	lzwMaxCodes = 1 << lzwMaxWidth
)

// LZWDecode decompresses LZW data with variable-width codes read MSB first.
// EarlyChange (default 1) makes the code width grow one code early; any
// value other than 0 or 1 is rejected. Predictors are applied as for
// FlateDecode.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	early := getIntParam(params, "EarlyChange", 1)
	if early != 0 && early != 1 {
		return nil, errors.Wrapf(ErrUnsupported, "LZWDecode: EarlyChange %d", early)
	}
	out, err := lzwDecode(data, early)
	if err != nil {
		return nil, err
	}
	return applyPredictorParams(out, params)
}

func lzwDecode(data []byte, early int) ([]byte, error) {
	var (
		out   bytes.Buffer
		table = make([][]byte, lzwMaxCodes)
		next  = lzwFirst
		width = lzwMinWidth
		prev  []byte
		br    = bitReader{data: data}
	)
	for {
		code, ok := br.read(width)
		if !ok {
			// a trailing code shorter than the current width ends the data
			return out.Bytes(), nil
		}
		if code == lzwClear {
			next, width, prev = lzwFirst, lzwMinWidth, nil
			continue
		}
		if code == lzwEOD {
			return out.Bytes(), nil
		}

		var entry []byte
		switch {
		case code < lzwClear:
			entry = []byte{byte(code)}
		case code < next:
			entry = table[code]
		case code == next && prev != nil:
			// the code being defined right now: previous string plus its own first byte
			entry = make([]byte, len(prev)+1)
			copy(entry, prev)
			entry[len(prev)] = prev[0]
		default:
			return nil, errors.Errorf("LZWDecode: invalid code %d at bit %d (next code %d)", code, br.pos-width, next)
		}
		out.Write(entry)

		if prev != nil && next < lzwMaxCodes {
			added := make([]byte, len(prev)+1)
			copy(added, prev)
			added[len(prev)] = entry[0]
			table[next] = added
			next++
		}
		prev = entry

		if next+early >= 1<<width && width < lzwMaxWidth {
			width++
		}
	}
}

// bitReader reads MSB-first codes from a byte slice.
type bitReader struct {
	data []byte
	pos  int // in bits
}

func (r *bitReader) read(n int) (int, bool) {
	if r.pos+n > len(r.data)*8 {
		return 0, false
	}
	v := 0
	for i := 0; i < n; i++ {
		b := r.data[r.pos>>3]
		v = v<<1 | int(b>>(7-uint(r.pos&7))&1)
		r.pos++
	}
	return v, true
}
