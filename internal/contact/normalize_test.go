package contact

import "testing"

// ----------------------------------------------------------------------------
// NormalizePhone Tests
// ----------------------------------------------------------------------------

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already normalized", "0612345678", "0612345678"},
		{"spaced national", "06 12 34 56 78", "0612345678"},
		{"international prefix", "+33 6 12 34 56 78", "0612345678"},
		{"compact international", "+33612345678", "0612345678"},
		{"dotted", "06.12.34.56.78", "0612345678"},
		{"nine digits kept", "612345678", "612345678"},
		{"too short", "123", ""},
		{"empty", "", ""},
		{"letters only", "n/a", ""},
		{"long international", "0033612345678", "3612345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.input); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_CountryCodeKeysSame(t *testing.T) {
	// Both spellings of one number must share a dedup key.
	national := NormalizePhone("06 12 34 56 78")
	international := NormalizePhone("+33 6 12 34 56 78")

	if national != international {
		t.Errorf("spellings diverge: %q != %q", national, international)
	}
}

func TestNormalizePhone_Idempotent(t *testing.T) {
	once := NormalizePhone("+33 6 12 34 56 78")
	twice := NormalizePhone(once)

	if once != twice {
		t.Errorf("normalization not idempotent: %q != %q", once, twice)
	}
}

// ----------------------------------------------------------------------------
// NormalizePostalCode Tests
// ----------------------------------------------------------------------------

func TestNormalizePostalCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paris", "75001", "75001"},
		{"leading zero restored", "1000", "01000"},
		{"numeric cell artifact", "75001.0", "75001"},
		{"letters", "abc", ""},
		{"too short", "123", ""},
		{"whitespace", "  69003 ", "69003"},
		{"overlong truncated", "750012", "75001"},
		{"four digits with artifact", "1000.0", "01000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePostalCode(tt.input); got != tt.want {
				t.Errorf("NormalizePostalCode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePostalCode_Idempotent(t *testing.T) {
	once := NormalizePostalCode("1000")
	twice := NormalizePostalCode(once)

	if once != twice {
		t.Errorf("normalization not idempotent: %q != %q", once, twice)
	}
}

// ----------------------------------------------------------------------------
// DigitsOnly Tests
// ----------------------------------------------------------------------------

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123 456 789 00012", "12345678900012"},
		{"abc", ""},
		{"", ""},
		{"siret: 552100554", "552100554"},
	}

	for _, tt := range tests {
		if got := DigitsOnly(tt.input); got != tt.want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
