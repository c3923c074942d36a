package emulator

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/sanitizer"
	"github.com/dmitrymomot/ency/pkg/validator"
)

// Account is an emulated user record.
type Account struct {
	UID           string
	Email         string
	DisplayName   string
	EmailVerified bool
	Disabled      bool
	PasswordHash  []byte
	ProviderID    string
	FederatedID   string
	CreatedAt     time.Time
}

// OOBCode is an issued out-of-band verification code.
type OOBCode struct {
	Code        string    `json:"oobCode"`
	Email       string    `json:"email"`
	RequestType string    `json:"requestType"`
	Link        string    `json:"oobLink"`
	CreatedAt   time.Time `json:"-"`
	uid         string
}

type loginFailures struct {
	count       int
	lockedUntil time.Time
}

func newUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newOpaqueToken() string {
	return uuid.NewString() + uuid.NewString()
}

// All methods below expect e.mu to be held.

func (e *Emulator) accountByEmailLocked(email string) *Account {
	uid, ok := e.byEmail[sanitizer.NormalizeEmail(email)]
	if !ok {
		return nil
	}
	return e.accounts[uid]
}

func (e *Emulator) insertLocked(a *Account) {
	if a.UID == "" {
		a.UID = newUID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = e.now()
	}
	e.accounts[a.UID] = a
	if a.Email != "" {
		e.byEmail[sanitizer.NormalizeEmail(a.Email)] = a.UID
	}
	if a.FederatedID != "" {
		e.byFederated[a.ProviderID+"|"+a.FederatedID] = a.UID
	}
}

func (e *Emulator) createPasswordAccountLocked(email, password, displayName string) (*Account, error) {
	switch {
	case email == "":
		return nil, badRequest(codeMissingEmail)
	case validator.Apply(validator.ValidEmail("email", email)) != nil:
		return nil, badRequest(codeInvalidEmail)
	case password == "":
		return nil, badRequest(codeMissingPassword)
	case len([]rune(password)) < e.cfg.MinPasswordLength:
		return nil, badRequest(codeWeakPassword + " : Password should be at least " +
			itoa(e.cfg.MinPasswordLength) + " characters")
	case e.accountByEmailLocked(email) != nil:
		return nil, badRequest(codeEmailExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), e.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	a := &Account{
		Email:        sanitizer.NormalizeEmail(email),
		DisplayName:  displayName,
		PasswordHash: hash,
		ProviderID:   identity.ProviderPassword,
	}
	e.insertLocked(a)
	return a, nil
}

// checkPasswordLocked applies the lockout policy around a bcrypt comparison.
func (e *Emulator) checkPasswordLocked(email, password string) (*Account, error) {
	key := sanitizer.NormalizeEmail(email)
	now := e.now()

	if f, ok := e.failures[key]; ok && now.Before(f.lockedUntil) {
		return nil, badRequest(codeTooManyAttempts)
	}

	a := e.accountByEmailLocked(email)
	if a == nil {
		return nil, badRequest(codeEmailNotFound)
	}
	if a.Disabled {
		return nil, badRequest(codeUserDisabled)
	}
	if len(a.PasswordHash) == 0 || bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		f := e.failures[key]
		f.count++
		if e.cfg.MaxFailedLogins > 0 && f.count >= e.cfg.MaxFailedLogins {
			f.count = 0
			f.lockedUntil = now.Add(e.cfg.LockoutDuration)
		}
		e.failures[key] = f
		return nil, badRequest(codeInvalidPassword)
	}

	delete(e.failures, key)
	return a, nil
}

func (e *Emulator) issueOOBLocked(a *Account, requestType string) OOBCode {
	code := OOBCode{
		Code:        uuid.NewString(),
		Email:       a.Email,
		RequestType: requestType,
		CreatedAt:   e.now(),
		uid:         a.UID,
	}
	code.Link = "http://" + e.cfg.Addr + "/emulator/action?mode=verifyEmail&oobCode=" + code.Code
	e.oobCodes[code.Code] = code
	return code
}
