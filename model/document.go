package model

import "time"

// Metadata contains the decoded document information dictionary.
type Metadata struct {
	Title        string
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
	// Custom holds any other text entries.
	Custom map[string]string
}

// IsEmpty reports whether no entry is set.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.Author == "" && m.Subject == "" && m.Keywords == "" &&
		m.Creator == "" && m.Producer == "" && m.CreationDate.IsZero() && m.ModDate.IsZero() &&
		len(m.Custom) == 0
}
