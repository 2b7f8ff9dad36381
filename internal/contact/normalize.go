package contact

import "strings"

// Normalization helpers are total: invalid or empty input degrades to ""
// rather than failing, so a bad cell never loses the rest of its row.

// DigitsOnly strips every non-digit character from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone reduces a phone cell to its 10-digit national form.
//
// Source data mixes formats with and without country code and leading zero;
// the trailing digits are the stable national number. Fewer than 9 digits is
// not a usable number and normalizes to "".
func NormalizePhone(raw string) string {
	digits := DigitsOnly(raw)
	if len(digits) < 9 {
		return ""
	}
	// +33 form carries the national number without its leading zero;
	// restore the zero so both spellings key the same.
	if len(digits) == 11 && strings.HasPrefix(digits, "33") {
		return "0" + digits[2:]
	}
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// NormalizePostalCode reduces a postal-code cell to a 5-digit code.
//
// Numeric spreadsheet cells surface as "75001.0"; anything after a decimal
// point is an artifact and dropped. A 4-digit code lost its leading zero to
// the same numeric conversion and gets it back.
func NormalizePostalCode(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	digits := DigitsOnly(s)
	switch {
	case len(digits) < 4:
		return ""
	case len(digits) == 4:
		digits = "0" + digits
	}
	return digits[:5]
}
