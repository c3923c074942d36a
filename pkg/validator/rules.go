package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Required fails on empty or whitespace-only values.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "Field is required"},
	}
}

// ValidEmail accepts a bare address (no display name) whose domain has at
// least one dot and no empty labels.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" || !strings.Contains(domain, ".") {
				return false
			}
			for label := range strings.SplitSeq(domain, ".") {
				if label == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "Invalid email"},
	}
}

// LengthBetween requires min <= rune count <= max.
func LengthBetween(field, value string, min, max int) Rule {
	return Rule{
		Check: func() bool {
			n := utf8.RuneCountInString(value)
			return n >= min && n <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("Must be between %d and %d characters long", min, max),
		},
	}
}

// LettersAndSpaces allows only English letters (a-z, A-Z) and whitespace.
func LettersAndSpaces(field, value string) Rule {
	return Rule{
		Check: func() bool {
			for _, r := range value {
				isASCIILetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
				if !isASCIILetter && !unicode.IsSpace(r) {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Message: "Can only contain English letters and spaces"},
	}
}

// ContainsLetter requires at least one letter.
func ContainsLetter(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsLetter) >= 0 },
		Error: ValidationError{Field: field, Message: "Must contain at least one letter"},
	}
}

// ContainsDigit requires at least one decimal digit.
func ContainsDigit(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.IndexFunc(value, unicode.IsDigit) >= 0 },
		Error: ValidationError{Field: field, Message: "Must contain at least one number"},
	}
}

// Matches requires value to equal other, e.g. a password confirmation.
func Matches(field, value, other, message string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Error: ValidationError{Field: field, Message: message},
	}
}
