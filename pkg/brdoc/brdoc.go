// Package brdoc validates and formats Brazilian documents and contact
// numbers: CPF, CEP and phone numbers.
package brdoc

import (
	"fmt"
	"strings"
)

// CPFLength is the digit count of an unmasked CPF.
const CPFLength = 11

// UnmaskDigits strips every non-digit rune from s.
func UnmaskDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCPF reports whether s is a valid CPF. Masked and unmasked input is
// accepted. All-same-digit sequences (e.g. "11111111111") are rejected even
// though their check digits are arithmetically consistent.
func ValidCPF(s string) bool {
	digits := UnmaskDigits(s)
	if len(digits) != CPFLength {
		return false
	}

	same := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}

	if cpfCheckDigit(digits, 9) != int(digits[9]-'0') {
		return false
	}
	return cpfCheckDigit(digits, 10) == int(digits[10]-'0')
}

// cpfCheckDigit computes the check digit over the first n digits using the
// standard weights n+1 .. 2.
func cpfCheckDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// MaskCPF formats an 11-digit CPF as "000.000.000-00". Input that is not
// 11 digits long is returned unchanged.
func MaskCPF(s string) string {
	d := UnmaskDigits(s)
	if len(d) != 11 {
		return s
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[0:3], d[3:6], d[6:9], d[9:11])
}

// ValidCEP reports whether s contains exactly eight digits.
func ValidCEP(s string) bool {
	return len(UnmaskDigits(s)) == 8
}

// MaskCEP formats an 8-digit CEP as "00000-000".
func MaskCEP(s string) string {
	d := UnmaskDigits(s)
	if len(d) != 8 {
		return s
	}
	return d[0:5] + "-" + d[5:8]
}

// MaskPhone formats 10-digit landlines as "(00) 0000-0000" and 11-digit
// mobile numbers as "(00) 00000-0000". Anything else is returned unchanged.
func MaskPhone(s string) string {
	d := UnmaskDigits(s)
	switch len(d) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:6], d[6:10])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", d[0:2], d[2:7], d[7:11])
	default:
		return s
	}
}
