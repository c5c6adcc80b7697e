package filters

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned for filter names that are not implemented and
// for parameter values outside the range a filter accepts.
var ErrUnsupported = errors.New("unsupported filter")

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// Kind identifies one stream filter.
type Kind int

const (
	KindNone Kind = iota
	KindFlate
	KindLZW
	KindASCIIHex
	KindASCII85
	KindRunLength
	KindCCITTFax
	KindDCT
	KindJPX
	KindJBIG2
	KindCrypt
)

var kindNames = map[Kind]string{
	KindFlate:     "FlateDecode",
	KindLZW:       "LZWDecode",
	KindASCIIHex:  "ASCIIHexDecode",
	KindASCII85:   "ASCII85Decode",
	KindRunLength: "RunLengthDecode",
	KindCCITTFax:  "CCITTFaxDecode",
	KindDCT:       "DCTDecode",
	KindJPX:       "JPXDecode",
	KindJBIG2:     "JBIG2Decode",
	KindCrypt:     "Crypt",
}

// lookup accepts both the full names and the abbreviations allowed in
// inline image dictionaries.
var lookup = map[string]Kind{
	"FlateDecode":     KindFlate,
	"Fl":              KindFlate,
	"LZWDecode":       KindLZW,
	"LZW":             KindLZW,
	"ASCIIHexDecode":  KindASCIIHex,
	"AHx":             KindASCIIHex,
	"ASCII85Decode":   KindASCII85,
	"A85":             KindASCII85,
	"RunLengthDecode": KindRunLength,
	"RL":              KindRunLength,
	"CCITTFaxDecode":  KindCCITTFax,
	"CCF":             KindCCITTFax,
	"DCTDecode":       KindDCT,
	"DCT":             KindDCT,
	"JPXDecode":       KindJPX,
	"JBIG2Decode":     KindJBIG2,
	"Crypt":           KindCrypt,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsImageCodec reports whether k produces an encoded image that is handed
// on as-is rather than decoded here.
func (k Kind) IsImageCodec() bool {
	return k == KindDCT || k == KindJPX || k == KindJBIG2
}

// Lookup maps a filter name to its Kind.
func Lookup(name string) (Kind, error) {
	if k, ok := lookup[name]; ok {
		return k, nil
	}
	return KindNone, errors.Wrapf(ErrUnsupported, "unknown filter %q", name)
}

// Spec is one step of a filter chain.
type Spec struct {
	Kind   Kind
	Params Params
}

// Decode applies chain left to right. An image codec stops the chain: the
// bytes fed to it are returned together with its Kind. Otherwise the
// returned Kind is KindNone.
func Decode(data []byte, chain []Spec) ([]byte, Kind, error) {
	for i, spec := range chain {
		if spec.Kind.IsImageCodec() {
			if i != len(chain)-1 {
				return nil, KindNone, errors.Wrapf(ErrUnsupported, "%s must be the last filter", spec.Kind)
			}
			return data, spec.Kind, nil
		}
		var err error
		data, err = decodeOne(data, spec)
		if err != nil {
			return nil, KindNone, errors.Wrapf(err, "filter %d (%s)", i, spec.Kind)
		}
	}
	return data, KindNone, nil
}

func decodeOne(data []byte, spec Spec) ([]byte, error) {
	switch spec.Kind {
	case KindFlate:
		return FlateDecode(data, spec.Params)
	case KindLZW:
		return LZWDecode(data, spec.Params)
	case KindASCIIHex:
		return ASCIIHexDecode(data)
	case KindASCII85:
		return ASCII85Decode(data)
	case KindRunLength:
		return RunLengthDecode(data)
	case KindCCITTFax:
		return CCITTFaxDecode(data, spec.Params)
	case KindCrypt:
		// decryption happens before the chain runs
		return data, nil
	default:
		return nil, errors.Wrapf(ErrUnsupported, "filter %s", spec.Kind)
	}
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}
	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}
