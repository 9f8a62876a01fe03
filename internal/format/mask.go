package format

import (
	"fmt"
	"strings"
	"unicode"
)

// Kind identifies the mask applied to a form field on every keystroke.
type Kind string

const (
	KindNone     Kind = "none"
	KindCurrency Kind = "currency"
	KindCNPJ     Kind = "cnpj"
	KindPhone    Kind = "phone"
	KindName     Kind = "name"
	KindGrade    Kind = "grade"
)

const (
	// CNPJLength is the length of a fully formatted CNPJ (NN.NNN.NNN/NNNN-NN).
	CNPJLength = 18
	// PhoneLength is the length of a fully formatted mobile phone ((NN) NNNNN-NNNN).
	PhoneLength = 15
	// NameMaxLength caps a sanitized customer name, in runes.
	NameMaxLength = 50
)

// Apply masks raw according to kind.
func Apply(kind Kind, raw string) (string, error) {
	switch kind {
	case KindNone, "":
		return raw, nil
	case KindCurrency:
		return Currency(raw), nil
	case KindCNPJ:
		return CNPJ(raw), nil
	case KindPhone:
		return Phone(raw), nil
	case KindName:
		return PersonName(raw), nil
	case KindGrade:
		return Grade(raw), nil
	default:
		return "", fmt.Errorf("unknown mask kind %q", kind)
	}
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Currency treats the digits of raw as an amount in cents and renders it with
// two decimals and a comma separator: "12345" becomes "123,45".
// Empty input (or input without digits) yields "".
func Currency(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}
	digits = strings.TrimLeft(digits, "0")
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	cut := len(digits) - 2
	return digits[:cut] + "," + digits[cut:]
}

// CNPJ progressively formats the digits of raw as NN.NNN.NNN/NNNN-NN,
// truncated to CNPJLength characters.
func CNPJ(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}

	formatted := digits
	if len(digits) > 2 {
		formatted = digits[:2] + "." + digits[2:]
	}
	if len(digits) > 5 {
		formatted = formatted[:6] + "." + formatted[6:]
	}
	if len(digits) > 8 {
		formatted = formatted[:10] + "/" + formatted[10:]
	}
	if len(digits) > 12 {
		formatted = formatted[:15] + "-" + formatted[15:]
	}
	return truncate(formatted, CNPJLength)
}

// Phone formats the digits of raw as (NN) NNNNN-NNNN, truncated to PhoneLength
// characters.
func Phone(raw string) string {
	digits := Digits(raw)
	if digits == "" {
		return ""
	}

	formatted := "(" + digits[:min(2, len(digits))]
	if len(digits) > 2 {
		formatted += ") " + digits[2:min(7, len(digits))]
	}
	if len(digits) > 7 {
		formatted += "-" + digits[7:]
	}
	return truncate(formatted, PhoneLength)
}

// PersonName drops everything but letters (accented included) and whitespace,
// keeping at most NameMaxLength runes.
func PersonName(raw string) string {
	var b strings.Builder
	n := 0
	for _, r := range raw {
		if n == NameMaxLength {
			break
		}
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// Grade keeps the first digit between 0 and 5.
func Grade(raw string) string {
	for _, r := range raw {
		if r >= '0' && r <= '5' {
			return string(r)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
