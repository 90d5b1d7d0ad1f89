package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPF(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "three digits", input: "123", expected: "123"},
		{name: "four digits", input: "1234", expected: "123.4"},
		{name: "six digits", input: "123456", expected: "123.456"},
		{name: "seven digits", input: "1234567", expected: "123.456.7"},
		{name: "nine digits", input: "123456789", expected: "123.456.789"},
		{name: "ten digits", input: "1234567890", expected: "123.456.789-0"},
		{name: "complete", input: "12345678901", expected: "123.456.789-01"},
		{name: "already masked", input: "123.456.789-01", expected: "123.456.789-01"},
		{name: "truncates extra digits", input: "1234567890123", expected: "123.456.789-01"},
		{name: "ignores letters", input: "abc", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CPF(tt.input))
		})
	}
}

func TestCPF_KeepsDigitOrderAtEveryLength(t *testing.T) {
	all := "98765432109"
	for n := 0; n <= len(all); n++ {
		in := all[:n]
		out := CPF(in)
		assert.Equal(t, in, Digits(out), "length %d", n)

		for i, r := range out {
			if r == '.' {
				assert.Contains(t, []int{3, 7}, i, "dot at %d for %q", i, out)
			}
			if r == '-' {
				assert.Equal(t, 11, i, "hyphen at %d for %q", i, out)
			}
		}
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "area code only", input: "11", expected: "11"},
		{name: "three digits", input: "119", expected: "(11) 9"},
		{name: "six digits", input: "119876", expected: "(11) 9876"},
		{name: "landline", input: "1133334444", expected: "(11) 3333-4444"},
		{name: "mobile", input: "11987654321", expected: "(11) 98765-4321"},
		{name: "masked mobile", input: "(11) 98765-4321", expected: "(11) 98765-4321"},
		{name: "truncates", input: "119876543210000", expected: "(11) 98765-4321"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Phone(tt.input))
		})
	}
}

func TestPhone_KeepsDigitOrderAtEveryLength(t *testing.T) {
	all := "21912345678"
	for n := 0; n <= len(all); n++ {
		in := all[:n]
		assert.Equal(t, in, Digits(Phone(in)), "length %d", n)
	}
}

func TestCEP(t *testing.T) {
	assert.Equal(t, "", CEP(""))
	assert.Equal(t, "01310", CEP("01310"))
	assert.Equal(t, "01310-1", CEP("013101"))
	assert.Equal(t, "01310-100", CEP("01310100"))
	assert.Equal(t, "01310-100", CEP("01310-100"))
	assert.Equal(t, "01310-100", CEP("0131010099"))
}

func TestUnformatCEP(t *testing.T) {
	assert.Equal(t, "01310100", UnformatCEP("01310-100"))
	assert.Equal(t, "", UnformatCEP("---"))
	assert.Equal(t, "0131010099", UnformatCEP("01310-100 99"))
}

func TestCEP_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"0",
		"01310",
		"01310-100",
		"cep: 04543-907",
		"12.345.678.90",
		"abc123def456ghi789",
	}

	for _, in := range inputs {
		want := Digits(in)
		if len(want) > 8 {
			want = want[:8]
		}
		assert.Equal(t, want, UnformatCEP(CEP(in)), "input %q", in)
	}
}

func TestIsCompleteCEP(t *testing.T) {
	assert.True(t, IsCompleteCEP("01310-100"))
	assert.False(t, IsCompleteCEP("0131010"))
	assert.False(t, IsCompleteCEP("013101000"))
	assert.False(t, IsCompleteCEP(strings.Repeat("x", 8)))
}
