// Package sanitizer normalises user-entered identity fields before they are
// validated or sent to the identity provider.
package sanitizer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName trims the name, collapses inner whitespace runs into single
// spaces and converts it to Unicode NFC so visually equal names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}
