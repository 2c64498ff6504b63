package importer

import (
	"strconv"
	"strings"
)

// Unit conversion constants for the vendor's imperial export format.
const (
	MetersPerMile = 1609.34
	MetersPerFoot = 0.3048
)

// emptyField reports whether a CSV cell carries no value. The vendor export
// writes "--" for absent metrics.
func emptyField(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "--"
}

// ParseDuration converts "H:MM:SS" or "MM:SS" to whole seconds. Empty or
// "--" cells and anything unparsable yield nil.
func ParseDuration(s string) *int {
	if emptyField(s) {
		return nil
	}

	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}

	total := 0.0
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil || f < 0 {
			return nil
		}
		total = total*60 + f
	}

	seconds := int(total)
	return &seconds
}

// MilesToMeters converts the export's distance unit to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

// FeetToMeters converts the export's elevation unit to meters.
func FeetToMeters(feet float64) float64 {
	return feet * MetersPerFoot
}

// ParseFloatField reads a numeric cell, tolerating thousands separators.
func ParseFloatField(s string) *float64 {
	if emptyField(s) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseIntField reads an integer cell, tolerating thousands separators.
func ParseIntField(s string) *int {
	f := ParseFloatField(s)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// PaceToSpeed converts a "MIN:SEC per mile" pace string to meters/second.
// An unparsable or zero-duration pace yields nil rather than dividing by
// zero.
func PaceToSpeed(s string) *float64 {
	seconds := ParseDuration(s)
	if seconds == nil || *seconds == 0 {
		return nil
	}
	speed := MetersPerMile / float64(*seconds)
	return &speed
}

// ParseSpeedField reads a speed cell. Pace-formatted values ("8:32") are
// inverted to a rate; plain numbers are mph and scaled to meters/second.
func ParseSpeedField(s string) *float64 {
	if emptyField(s) {
		return nil
	}
	if strings.Contains(s, ":") {
		return PaceToSpeed(s)
	}
	mph := ParseFloatField(s)
	if mph == nil {
		return nil
	}
	mps := *mph * MetersPerMile / 3600
	return &mps
}

// NormalizeType canonicalizes a free-text activity type: lowercased, internal
// whitespace collapsed to underscores, everything outside [a-z0-9_] stripped.
func NormalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
