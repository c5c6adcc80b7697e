package font

// Widths of the standard 14 fonts for codes 32 through 126, in thousandths
// of an em. They are used when a font dictionary has no /Widths.
// Punctuation missing from the bold and serif tables takes the Helvetica
// value.

// standardWidths maps a standard font name to its width table. Courier is
// monospaced and Symbol and ZapfDingbats use the default width.
var standardWidths = map[string]*[95]float64{
	"Helvetica":             &helveticaWidths,
	"Helvetica-Oblique":     &helveticaWidths,
	"Helvetica-Bold":        &helveticaBoldWidths,
	"Helvetica-BoldOblique": &helveticaBoldWidths,
	"Arial":                 &helveticaWidths,
	"Arial,Bold":            &helveticaBoldWidths,
	"Times-Roman":           &timesWidths,
	"Times-Italic":          &timesWidths,
	"Times-Bold":            &timesBoldWidths,
	"Times-BoldItalic":      &timesBoldWidths,
	"TimesNewRoman":         &timesWidths,
	"TimesNewRoman,Bold":    &timesBoldWidths,
	"Courier":               &courierWidths,
	"Courier-Bold":          &courierWidths,
	"Courier-Oblique":       &courierWidths,
	"Courier-BoldOblique":   &courierWidths,
	"CourierNew":            &courierWidths,
	"Symbol":                &defaultWidths,
	"ZapfDingbats":          &defaultWidths,
}

var courierWidths, defaultWidths [95]float64

func init() {
	for i := range courierWidths {
		courierWidths[i] = 600
		defaultWidths[i] = DefaultWidth
	}
}

var helveticaWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]float64{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
	611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 334, 260, 334, 584,
}

var timesWidths = [95]float64{
	250, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 584, 584, 584, 556,
	1015, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
	556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 278, 278, 278, 469, 556,
	333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
	500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 334, 260, 334, 584,
}

var timesBoldWidths = [95]float64{
	250, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 584, 584, 584, 556,
	1015, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
	611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 278, 278, 278, 469, 556,
	333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
	556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 334, 260, 334, 584,
}
