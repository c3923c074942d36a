package emulator

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// IDClaims are the claims of an emulator ID token.
type IDClaims struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (e *Emulator) issuer() string {
	return "https://securetoken.google.com/" + e.cfg.ProjectID
}

func (e *Emulator) signIDToken(a *Account) (string, error) {
	now := e.now()
	claims := IDClaims{
		UserID:        a.UID,
		Email:         a.Email,
		EmailVerified: a.EmailVerified,
		Name:          a.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    e.issuer(),
			Subject:   a.UID,
			Audience:  jwt.ClaimStrings{e.cfg.ProjectID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e.cfg.SigningKey))
}

// verifyIDTokenLocked returns the account the token was issued to.
func (e *Emulator) verifyIDTokenLocked(raw string) (*Account, error) {
	if raw == "" {
		return nil, badRequest(codeInvalidIDToken)
	}

	var claims IDClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(e.cfg.SigningKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(e.issuer()),
		jwt.WithTimeFunc(e.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, badRequest(codeTokenExpired)
	}
	if err != nil {
		return nil, badRequest(codeInvalidIDToken)
	}

	a, ok := e.accounts[claims.UserID]
	if !ok {
		return nil, badRequest(codeUserNotFound)
	}
	if a.Disabled {
		return nil, badRequest(codeUserDisabled)
	}
	return a, nil
}

// session issues a fresh ID token and a new refresh token for a.
func (e *Emulator) sessionLocked(a *Account) (idToken, refreshToken string, err error) {
	idToken, err = e.signIDToken(a)
	if err != nil {
		return "", "", err
	}
	refreshToken = newOpaqueToken()
	e.refreshTokens[refreshToken] = a.UID
	return idToken, refreshToken, nil
}

func (e *Emulator) expiresIn() string {
	return strconv.Itoa(int(e.cfg.TokenTTL.Seconds()))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
