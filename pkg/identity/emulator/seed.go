package emulator

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/sanitizer"
)

// SeedAccount is one entry of a seed file:
//
//	accounts:
//	  - email: ann@example.com
//	    password: secret1
//	    display_name: Ann
//	    email_verified: true
type SeedAccount struct {
	UID           string `yaml:"uid"`
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`
	DisplayName   string `yaml:"display_name"`
	EmailVerified bool   `yaml:"email_verified"`
	Disabled      bool   `yaml:"disabled"`
}

type seedDocument struct {
	Accounts []SeedAccount `yaml:"accounts"`
}

// SeedFile loads accounts from a YAML file.
func (e *Emulator) SeedFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrSeedFile, err)
	}

	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Join(ErrSeedFile, err)
	}
	return e.Seed(doc.Accounts...)
}

// Seed inserts password accounts. Existing emails are rejected.
func (e *Emulator) Seed(accounts ...SeedAccount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range accounts {
		if s.Email == "" || s.Password == "" {
			return fmt.Errorf("%w: account %d needs email and password", ErrSeedFile, i)
		}
		if e.accountByEmailLocked(s.Email) != nil {
			return fmt.Errorf("%w: duplicate email %s", ErrSeedFile, s.Email)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(s.Password), e.cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("%w: hash password of %s: %w", ErrSeedFile, s.Email, err)
		}

		e.insertLocked(&Account{
			UID:           s.UID,
			Email:         sanitizer.NormalizeEmail(s.Email),
			DisplayName:   s.DisplayName,
			EmailVerified: s.EmailVerified,
			Disabled:      s.Disabled,
			PasswordHash:  hash,
			ProviderID:    identity.ProviderPassword,
		})
	}

	e.log.Info("accounts seeded", slog.Int("count", len(accounts)))
	return nil
}
