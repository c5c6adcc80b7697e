package filters

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes CCITT Group 3/4 fax data into packed 1-bit rows.
//
// Parameters:
//   - K: -1 for Group 4, 0 or more for Group 3 (default 0)
//   - Columns: image width in pixels (default 1728)
//   - Rows: image height, 0 to detect it from the data
//   - BlackIs1: invert the output bits (default false)
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	k := getIntParam(params, "K", 0)
	blackIs1 := getBoolParam(params, "BlackIs1", false)

	if columns <= 0 || rows < 0 {
		return nil, errors.Wrapf(ErrUnsupported, "CCITTFaxDecode: Columns %d Rows %d", columns, rows)
	}

	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}
	if rows == 0 {
		rows = ccitt.AutoDetectHeight
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, &ccitt.Options{Invert: blackIs1})
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, errors.Wrap(err, "CCITTFaxDecode")
	}
	return out, nil
}
