package reader

import (
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/pdfcore/core"
	"github.com/tsawler/pdfcore/font"
	"github.com/tsawler/pdfcore/model"
)

// Info decodes the trailer /Info dictionary. Text strings are decoded
// from PDFDocEncoding or UTF-16; dates that do not parse are left zero
// and recorded as warnings.
func (d *Document) Info() model.Metadata {
	var m model.Metadata
	obj := d.store.Trailer().Get("Info")
	if obj == nil {
		return m
	}
	info, ok, err := d.store.Dict(obj)
	if err != nil || !ok {
		d.warnings.Addf("pages", "/Info is not a dictionary")
		return m
	}

	for _, key := range info.Keys() {
		v, err := d.store.Resolve(info.Get(key))
		if err != nil {
			continue
		}
		s, ok := v.(core.String)
		if !ok {
			continue
		}
		text := font.DecodeTextString([]byte(s))
		switch key {
		case "Title":
			m.Title = text
		case "Author":
			m.Author = text
		case "Subject":
			m.Subject = text
		case "Keywords":
			m.Keywords = text
		case "Creator":
			m.Creator = text
		case "Producer":
			m.Producer = text
		case "CreationDate", "ModDate":
			t, ok := ParseDate(text)
			if !ok {
				d.warnings.Addf("pages", "/Info /%s %q is not a date", key, text)
				continue
			}
			if key == "CreationDate" {
				m.CreationDate = t
			} else {
				m.ModDate = t
			}
		default:
			if m.Custom == nil {
				m.Custom = make(map[string]string)
			}
			m.Custom[key] = text
		}
	}
	return m
}

// ParseDate parses a date string of the form D:YYYYMMDDHHmmSSOHH'mm'.
// Everything after the year is optional, and the D: prefix, the
// apostrophes and a trailing apostrophe may be missing.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return time.Time{}, false
	}

	// field widths and ranges of YYYY MM DD HH mm SS
	fields := [6]int{0, 1, 1, 0, 0, 0}
	widths := [6]int{4, 2, 2, 2, 2, 2}
	limits := [6]int{9999, 12, 31, 23, 59, 59}
	pos := 0
	for i, w := range widths {
		if pos == len(s) || !isDigit(s[pos]) {
			break
		}
		if pos+w > len(s) {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(s[pos : pos+w])
		if err != nil || n > limits[i] || (i > 0 && i < 3 && n == 0) {
			return time.Time{}, false
		}
		fields[i] = n
		pos += w
	}

	loc := time.UTC
	if pos < len(s) {
		var ok bool
		if loc, ok = parseZone(s[pos:]); !ok {
			return time.Time{}, false
		}
	}
	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc)
	if t.Day() != fields[2] {
		// February 30th and the like
		return time.Time{}, false
	}
	return t, true
}

// parseZone reads Z, or +HH'mm' / -HH'mm' with optional apostrophes and
// minutes.
func parseZone(s string) (*time.Location, bool) {
	sign := 1
	switch s[0] {
	case 'Z', 'z':
		return time.UTC, true
	case '+':
	case '-':
		sign = -1
	default:
		return nil, false
	}
	digits := strings.Map(func(r rune) rune {
		if r == '\'' {
			return -1
		}
		return r
	}, s[1:])
	if len(digits) != 2 && len(digits) != 4 {
		return nil, false
	}
	hh, err := strconv.Atoi(digits[:2])
	if err != nil || hh > 23 {
		return nil, false
	}
	mm := 0
	if len(digits) == 4 {
		if mm, err = strconv.Atoi(digits[2:]); err != nil || mm > 59 {
			return nil, false
		}
	}
	offset := sign * (hh*3600 + mm*60)
	if offset == 0 {
		return time.UTC, true
	}
	return time.FixedZone("", offset), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
