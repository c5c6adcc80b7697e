package filters

import (
	"github.com/pkg/errors"
)

// predictorLayout describes the sample rows a predictor operates on.
type predictorLayout struct {
	colors   int
	bpc      int
	columns  int
	bpp      int // bytes per pixel, at least 1
	rowBytes int // bytes per row without the PNG tag byte
}

// Limits on predictor parameters; within them the row size cannot overflow.
const (
	maxPredictorColors  = 32
	maxPredictorColumns = 1 << 24
)

// newPredictorLayout validates params against the size of the data they
// describe: a single row may not be longer than the whole stream.
func newPredictorLayout(params Params, dataLen int) (predictorLayout, error) {
	l := predictorLayout{
		colors:  getIntParam(params, "Colors", 1),
		bpc:     getIntParam(params, "BitsPerComponent", 8),
		columns: getIntParam(params, "Columns", 1),
	}
	switch l.bpc {
	case 1, 2, 4, 8, 16:
	default:
		return l, errors.Wrapf(ErrUnsupported, "BitsPerComponent %d", l.bpc)
	}
	if l.colors < 1 || l.colors > maxPredictorColors || l.columns < 1 || l.columns > maxPredictorColumns {
		return l, errors.Wrapf(ErrUnsupported, "Colors %d Columns %d", l.colors, l.columns)
	}
	l.bpp = (l.colors*l.bpc + 7) / 8
	l.rowBytes = (l.colors*l.bpc*l.columns + 7) / 8
	if dataLen > 0 && l.rowBytes > dataLen {
		return l, errors.Errorf("predictor row of %d bytes exceeds %d bytes of data", l.rowBytes, dataLen)
	}
	return l, nil
}

// applyPredictorParams undoes the predictor named by params. Predictor 1
// (or none) is the identity, 2 is TIFF Predictor 2 and 10-15 are the PNG
// predictors, where each row carries its own algorithm tag.
func applyPredictorParams(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor == 1:
		return data, nil
	case predictor == 2:
		l, err := newPredictorLayout(params, len(data))
		if err != nil {
			return nil, err
		}
		return tiffPredictor(data, l)
	case predictor >= 10 && predictor <= 15:
		l, err := newPredictorLayout(params, len(data))
		if err != nil {
			return nil, err
		}
		return pngPredictor(data, l)
	}
	return nil, errors.Wrapf(ErrUnsupported, "Predictor %d", predictor)
}

// tiffPredictor predicts each sample from the one to its left. Only 8-bit
// samples occur in practice.
func tiffPredictor(data []byte, l predictorLayout) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if l.bpc != 8 {
		return nil, errors.Wrapf(ErrUnsupported, "TIFF predictor with %d bits per component", l.bpc)
	}
	out := make([]byte, len(data))
	copy(out, data)
	for rowStart := 0; rowStart < len(out); rowStart += l.rowBytes {
		rowEnd := rowStart + l.rowBytes
		if rowEnd > len(out) {
			rowEnd = len(out)
		}
		for i := rowStart + l.colors; i < rowEnd; i++ {
			out[i] += out[i-l.colors]
		}
	}
	return out, nil
}

// pngPredictor decodes PNG-predicted rows. A short final row is decoded as
// far as it goes.
func pngPredictor(data []byte, l predictorLayout) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	stride := l.rowBytes + 1
	out := make([]byte, 0, len(data)/stride*l.rowBytes+l.rowBytes)
	prior := make([]byte, l.rowBytes)
	row := make([]byte, l.rowBytes)

	for start := 0; start < len(data); start += stride {
		end := start + stride
		if end > len(data) {
			end = len(data)
		}
		tag := data[start]
		raw := data[start+1 : end]
		n := len(raw)

		for i := 0; i < n; i++ {
			var left, upLeft byte
			if i >= l.bpp {
				left = row[i-l.bpp]
				upLeft = prior[i-l.bpp]
			}
			up := prior[i]
			switch tag {
			case 0:
				row[i] = raw[i]
			case 1:
				row[i] = raw[i] + left
			case 2:
				row[i] = raw[i] + up
			case 3:
				row[i] = raw[i] + byte((int(left)+int(up))/2)
			case 4:
				row[i] = raw[i] + paeth(left, up, upLeft)
			default:
				return nil, errors.Errorf("unknown PNG predictor tag %d in row %d", tag, start/stride)
			}
		}
		out = append(out, row[:n]...)
		prior, row = row, prior
	}
	return out, nil
}

// paeth selects the neighbour (left, above, upper-left) closest to a
// linear prediction.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
