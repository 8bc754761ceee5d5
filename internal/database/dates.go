package database

import (
	"regexp"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2-1-2006",
	"2/1/2006",
	"2.1.2006",
	"2-Jan-2006",
	"2-January-2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006-01-02",
}

var (
	ordinalSuffix = regexp.MustCompile(`(?i)^(\d{1,2})(st|nd|rd|th)\b`)
	innerSpace    = regexp.MustCompile(`\s+`)
)

// ParseDate parses the date notations the portal uses ("15-07-2024",
// "15/07/2024", "15-Jul-2024", "15th July 2024"). Empty, "--" or unparseable
// input yields nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(innerSpace.ReplaceAllString(s, " "))
	if s == "" || s == "--" {
		return nil
	}
	s = ordinalSuffix.ReplaceAllString(s, "$1")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
