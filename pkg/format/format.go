package format

import "strings"

const (
	cpfDigits   = 11
	phoneDigits = 11
	cepDigits   = 8
)

// Digits returns only the ASCII digits of s, in order.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// limitDigits strips non-digits and truncates to max digits.
func limitDigits(s string, max int) string {
	d := Digits(s)
	if len(d) > max {
		d = d[:max]
	}
	return d
}

// CPF masks a national tax id progressively: 123, 123.456, 123.456.789, 123.456.789-01.
func CPF(s string) string {
	d := limitDigits(s, cpfDigits)
	switch {
	case len(d) <= 3:
		return d
	case len(d) <= 6:
		return d[:3] + "." + d[3:]
	case len(d) <= 9:
		return d[:3] + "." + d[3:6] + "." + d[6:]
	default:
		return d[:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:]
	}
}

// Phone masks a phone number with area code: (11) 9876, (11) 9876-5432, (11) 98765-4321.
func Phone(s string) string {
	d := limitDigits(s, phoneDigits)
	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 6:
		return "(" + d[:2] + ") " + d[2:]
	case len(d) <= 10:
		return "(" + d[:2] + ") " + d[2:6] + "-" + d[6:]
	default:
		return "(" + d[:2] + ") " + d[2:7] + "-" + d[7:]
	}
}

// CEP masks a postal code as 01310-100 once more than five digits are present.
func CEP(s string) string {
	d := limitDigits(s, cepDigits)
	if len(d) <= 5 {
		return d
	}
	return d[:5] + "-" + d[5:]
}

// UnformatCEP returns the storage form of a postal code (digits only, not truncated).
func UnformatCEP(s string) string {
	return Digits(s)
}

// IsCompleteCEP reports whether s carries exactly eight digits.
func IsCompleteCEP(s string) bool {
	return len(UnformatCEP(s)) == cepDigits
}
