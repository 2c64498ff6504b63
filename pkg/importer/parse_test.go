package importer

import (
	"math"
	"testing"
)

func TestParseDuration(t *testing.T) {
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name  string
		input string
		want  *int
	}{
		{name: "hours minutes seconds", input: "1:02:03", want: intPtr(3723)},
		{name: "minutes seconds", input: "45:10", want: intPtr(2710)},
		{name: "fractional seconds truncate", input: "45:10.6", want: intPtr(2710)},
		{name: "zero", input: "0:00", want: intPtr(0)},
		{name: "dashes", input: "--", want: nil},
		{name: "empty", input: "", want: nil},
		{name: "garbage", input: "abc", want: nil},
		{name: "single segment", input: "42", want: nil},
		{name: "too many segments", input: "1:2:3:4", want: nil},
		{name: "negative segment", input: "-1:00", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDuration(tt.input)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ParseDuration(%q) = %d, want nil", tt.input, *got)
			case tt.want != nil && got == nil:
				t.Errorf("ParseDuration(%q) = nil, want %d", tt.input, *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("ParseDuration(%q) = %d, want %d", tt.input, *got, *tt.want)
			}
		})
	}
}

func TestUnitConversions(t *testing.T) {
	if got := MilesToMeters(1); math.Abs(got-1609.34) > 0.01 {
		t.Errorf("MilesToMeters(1) = %v", got)
	}
	if got := FeetToMeters(10); math.Abs(got-3.048) > 0.01 {
		t.Errorf("FeetToMeters(10) = %v", got)
	}
}

func TestPaceToSpeed(t *testing.T) {
	// 8 min/mile = 1609.34m / 480s
	got := PaceToSpeed("8:00")
	if got == nil || math.Abs(*got-3.35) > 0.01 {
		t.Errorf("PaceToSpeed(8:00) = %v, want ~3.35", got)
	}

	if got := PaceToSpeed("0:00"); got != nil {
		t.Errorf("PaceToSpeed(0:00) = %v, want nil (no division by zero)", *got)
	}
	if got := PaceToSpeed("--"); got != nil {
		t.Errorf("PaceToSpeed(--) = %v, want nil", *got)
	}
	if got := PaceToSpeed("fast"); got != nil {
		t.Errorf("PaceToSpeed(fast) = %v, want nil", *got)
	}
}

func TestParseSpeedField(t *testing.T) {
	// Plain numbers are mph: 10 mph = 16093.4m / 3600s
	got := ParseSpeedField("10")
	if got == nil || math.Abs(*got-4.47) > 0.01 {
		t.Errorf("ParseSpeedField(10) = %v, want ~4.47", got)
	}

	got = ParseSpeedField("8:00")
	if got == nil || math.Abs(*got-3.35) > 0.01 {
		t.Errorf("ParseSpeedField(8:00) = %v, want ~3.35", got)
	}
}

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "Indoor Cycling!", want: "indoor_cycling"},
		{input: "Running", want: "running"},
		{input: "  Trail   Running  ", want: "trail_running"},
		{input: "Strength Training", want: "strength_training"},
		{input: "Yoga/Pilates", want: "yogapilates"},
		{input: "HIIT (45')", want: "hiit_45"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeType(tt.input); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseNumericFields(t *testing.T) {
	if got := ParseFloatField("1,234.5"); got == nil || *got != 1234.5 {
		t.Errorf("ParseFloatField(1,234.5) = %v", got)
	}
	if got := ParseIntField("12,043"); got == nil || *got != 12043 {
		t.Errorf("ParseIntField(12,043) = %v", got)
	}
	if got := ParseIntField("--"); got != nil {
		t.Errorf("ParseIntField(--) = %v, want nil", *got)
	}
}

func TestExtractLocation(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name  string
		title string
		want  *string
	}{
		{name: "known place exact", title: "Central Park loop", want: strPtr("Central Park")},
		{name: "known place case-insensitive", title: "easy run around central park", want: strPtr("Central Park")},
		{name: "known place mid-title", title: "Long ride to Boulder and back", want: strPtr("Boulder")},
		{name: "word boundary respected", title: "bouldering session", want: nil},
		{name: "leading capitalized word", title: "Tempelhof loop", want: strPtr("Tempelhof")},
		{name: "common word not a place", title: "Morning Run", want: nil},
		{name: "no match", title: "easy spin", want: nil},
		{name: "empty", title: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractLocation(tt.title)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("ExtractLocation(%q) = %q, want nil", tt.title, *got)
			case tt.want != nil && got == nil:
				t.Errorf("ExtractLocation(%q) = nil, want %q", tt.title, *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("ExtractLocation(%q) = %q, want %q", tt.title, *got, *tt.want)
			}
		})
	}
}
