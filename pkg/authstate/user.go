package authstate

import (
	"github.com/dmitrymomot/ency/pkg/sanitizer"
	"github.com/dmitrymomot/ency/pkg/validator"
)

// User is the unified session and profile record. A zero User means no
// authenticated session.
type User struct {
	UID        string `json:"uid,omitempty"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	IsVerified bool   `json:"is_verified,omitempty"`
}

// IsAuthenticated reports whether u carries a uid.
func (u User) IsAuthenticated() bool {
	return u.UID != ""
}

// State is the snapshot exposed to the UI.
type State struct {
	User      User  `json:"user"`
	IsLoading bool  `json:"is_loading"`
	Phase     Phase `json:"phase"`
}

// SignUpInput is the sign-up form. ConfirmPassword is checked only when set.
type SignUpInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	Name            string
}

func (in *SignUpInput) normalize() {
	in.Email = sanitizer.NormalizeEmail(in.Email)
	in.Name = sanitizer.NormalizeName(in.Name)
}

// Validate applies the sign-up form rules: a valid email, a name of 2 to 30
// English letters and spaces, and a password of 6 to 20 characters with at least one
// letter and one digit.
func (in SignUpInput) Validate() error {
	rules := []validator.Rule{
		validator.Required("email", in.Email),
		validator.ValidEmail("email", in.Email),
		validator.Required("name", in.Name),
		validator.LengthBetween("name", in.Name, 2, 30),
		validator.LettersAndSpaces("name", in.Name),
		validator.Required("password", in.Password),
		validator.LengthBetween("password", in.Password, 6, 20),
		validator.ContainsLetter("password", in.Password),
		validator.ContainsDigit("password", in.Password),
	}
	if in.ConfirmPassword != "" {
		rules = append(rules, validator.Matches("confirm_password", in.ConfirmPassword, in.Password, "Passwords don't match"))
	}
	return validator.Apply(rules...)
}

// SignInInput is the sign-in form.
type SignInInput struct {
	Email    string
	Password string
}

func (in *SignInInput) normalize() {
	in.Email = sanitizer.NormalizeEmail(in.Email)
}

// Validate checks that email and password are present and well formed.
func (in SignInInput) Validate() error {
	return validator.Apply(
		validator.Required("email", in.Email),
		validator.Required("password", in.Password),
	)
}
