// Package filters decodes stream data.
//
// [Decode] runs a filter chain in order. Each stage is a [Spec]: the
// filter [Kind], looked up once from its name (abbreviations included),
// and its decode parameters.
//
//	out, kind, err := filters.Decode(data, []filters.Spec{
//	    {Kind: filters.KindASCII85},
//	    {Kind: filters.KindFlate, Params: filters.Params{"Predictor": 12, "Columns": 4}},
//	})
//
// FlateDecode and LZWDecode honor the PNG (10-15) and TIFF (2)
// predictors. LZWDecode reads /EarlyChange, 0 or 1.
//
// Image codecs (DCTDecode, JPXDecode, JBIG2Decode) end the chain: their
// input is returned undecoded together with the codec's Kind. An unknown
// filter name yields core's UnsupportedFilter kind at the caller.
package filters
