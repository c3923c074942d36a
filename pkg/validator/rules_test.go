package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/ency/pkg/validator"
)

func TestRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule validator.Rule
		want bool
	}{
		{"required ok", validator.Required("f", "x"), true},
		{"required blank", validator.Required("f", "   "), false},
		{"email ok", validator.ValidEmail("f", "a@b.com"), true},
		{"email no domain dot", validator.ValidEmail("f", "a@b"), false},
		{"email display name", validator.ValidEmail("f", "Ann <a@b.com>"), false},
		{"email empty label", validator.ValidEmail("f", "a@b..com"), false},
		{"email missing at", validator.ValidEmail("f", "ab.com"), false},
		{"length ok", validator.LengthBetween("f", "Ann", 2, 30), true},
		{"length counts runes", validator.LengthBetween("f", "Zoë", 3, 3), true},
		{"length short", validator.LengthBetween("f", "A", 2, 30), false},
		{"letters and spaces", validator.LettersAndSpaces("f", "Ann Lee"), true},
		{"letters rejects digits", validator.LettersAndSpaces("f", "Ann2"), false},
		{"letters rejects non-english letters", validator.LettersAndSpaces("f", "Zoë"), false},
		{"letters rejects cyrillic", validator.LettersAndSpaces("f", "Анна"), false},
		{"contains letter", validator.ContainsLetter("f", "123a"), true},
		{"contains letter missing", validator.ContainsLetter("f", "123"), false},
		{"contains digit", validator.ContainsDigit("f", "secret1"), true},
		{"contains digit missing", validator.ContainsDigit("f", "secret"), false},
		{"matches", validator.Matches("f", "secret1", "secret1", "mismatch"), true},
		{"matches differs", validator.Matches("f", "secret1", "secret2", "mismatch"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.rule.Check())
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("nil when all pass", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validator.Apply(validator.Required("name", "Ann")))
	})

	t.Run("collects failures per field", func(t *testing.T) {
		t.Parallel()

		err := validator.Apply(
			validator.Required("email", ""),
			validator.ValidEmail("email", ""),
			validator.ContainsDigit("password", "secret"),
		)
		require.Error(t, err)

		wrapped := fmt.Errorf("sign up: %w", err)
		assert.True(t, validator.IsValidationError(wrapped))

		ve := validator.ExtractValidationErrors(wrapped)
		require.Len(t, ve, 3)
		assert.True(t, ve.Has("email"))
		assert.False(t, ve.Has("name"))
		assert.Equal(t, []string{"email", "password"}, ve.Fields())
		assert.Equal(t, []string{"Field is required", "Invalid email"}, ve.Get("email"))
		assert.Contains(t, ve.Error(), "password: Must contain at least one number")
	})

	t.Run("extract from unrelated error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, validator.ExtractValidationErrors(errors.New("x")))
		assert.False(t, validator.IsValidationError(nil))
	})
}
