package game

import (
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the wire and storage format of a puzzle date.
const DateLayout = "2006-01-02"

// ReferenceZone is the time zone in which puzzle dates roll over.
const ReferenceZone = "America/New_York"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// LoadZone resolves a zone name, defaulting to ReferenceZone when empty.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = ReferenceZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", name, err)
	}
	return loc, nil
}

// DateIn formats t as a puzzle date in loc.
func DateIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a puzzle date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	if !dateRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
