package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// knownPlaces is the closed list of place names scanned for in human-entered
// activity titles. Matching is case-insensitive on word boundaries.
var knownPlaces = []string{
	"Central Park",
	"Prospect Park",
	"Golden Gate Park",
	"Hyde Park",
	"Richmond Park",
	"Regents Park",
	"Green Lake",
	"Lake Union",
	"Boulder",
	"Denver",
	"Brooklyn",
	"Manhattan",
	"Seattle",
	"Portland",
	"Austin",
	"Chicago",
}

var titleCaser = cases.Title(language.English)

// ExtractLocation scans a human-entered title against the known place list,
// falling back to the leading word when it is capitalized. No match yields
// nil.
func ExtractLocation(title string) *string {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	lower := strings.ToLower(title)
	for _, place := range knownPlaces {
		if containsWord(lower, strings.ToLower(place)) {
			normalized := titleCaser.String(place)
			return &normalized
		}
	}

	// Heuristic: titles like "Tempelhof loop" often lead with the place.
	first := strings.FieldsFunc(title, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '-' || r == ':'
	})
	if len(first) > 1 && leadingUpper(first[0]) && !commonTitleWord(first[0]) {
		loc := first[0]
		return &loc
	}

	return nil
}

// containsWord reports whether sub occurs in s on word boundaries, so
// "Boulder" does not match "Bouldering".
func containsWord(s, sub string) bool {
	for idx := strings.Index(s, sub); idx >= 0; {
		before := idx == 0 || !isWordRune(rune(s[idx-1]))
		afterIdx := idx + len(sub)
		after := afterIdx >= len(s) || !isWordRune(rune(s[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], sub)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func leadingUpper(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// commonTitleWord filters capitalized words that are clearly not places.
func commonTitleWord(word string) bool {
	switch strings.ToLower(word) {
	case "morning", "afternoon", "evening", "night", "lunch", "early", "late",
		"long", "short", "easy", "hard", "tempo", "recovery", "interval",
		"indoor", "outdoor", "virtual", "weekly", "sunday", "monday",
		"tuesday", "wednesday", "thursday", "friday", "saturday":
		return true
	}
	return false
}
