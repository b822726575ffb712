package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// PatientID derives the stable, one-way identifier of a patient from their
// name and birth date (YYYY-MM-DD).
func PatientID(name, birthDate string) string {
	normalized := strings.Join(strings.Fields(name), " ") + "|" + strings.TrimSpace(birthDate)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// StripNonDigits drops every character that is not an ASCII digit.
func StripNonDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
