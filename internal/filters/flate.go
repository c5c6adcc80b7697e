package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// FlateDecode decompresses Flate (zlib/deflate) compressed data and applies
// the predictor named in params, if any.
//
// Many producers write streams with a damaged zlib trailer or a truncated
// tail. Output decompressed before such damage is returned without error;
// a stream with a missing zlib header is retried as raw deflate.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := zlibDecompress(data)
	if err != nil {
		return nil, err
	}
	return applyPredictorParams(decompressed, params)
}

func zlibDecompress(data []byte) ([]byte, error) {
	var r io.ReadCloser
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		// no zlib header: treat as raw deflate
		r = flate.NewReader(bytes.NewReader(data))
	}
	defer r.Close()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	if err != nil && buf.Len() == 0 {
		return nil, errors.Wrap(err, "FlateDecode")
	}
	return buf.Bytes(), nil
}
