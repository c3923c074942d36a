package toolkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/secrets"
)

// expirySkew treats ID tokens as expired slightly before their exp claim.
const expirySkew = 30 * time.Second

// Session is the persisted sign-in state.
type Session struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	ProviderID    string    `json:"provider_id,omitempty"`
	IDToken       string    `json:"id_token"`
	RefreshToken  string    `json:"refresh_token"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *Session) expired(now time.Time) bool {
	return !now.Add(expirySkew).Before(s.ExpiresAt)
}

func (s *Session) user() *identity.User {
	if s == nil {
		return nil
	}
	return &identity.User{
		UID:           s.UID,
		Email:         s.Email,
		DisplayName:   s.DisplayName,
		EmailVerified: s.EmailVerified,
		ProviderID:    s.ProviderID,
	}
}

func (s *Session) applyAccount(a *accountInfo) {
	s.Email = a.Email
	s.DisplayName = a.DisplayName
	s.EmailVerified = a.EmailVerified
	if len(a.ProviderUserInfo) > 0 && s.ProviderID == "" {
		s.ProviderID = a.ProviderUserInfo[0].ProviderID
	}
}

// tokenExpiry prefers the exp claim of the ID token and falls back to the
// expiresIn seconds reported next to it.
func tokenExpiry(idToken, expiresIn string, now time.Time) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if secs, err := strconv.Atoi(expiresIn); err == nil {
		return now.Add(time.Duration(secs) * time.Second)
	}
	return now.Add(time.Hour)
}

// SessionStore persists the session between process runs. Load returns
// (nil, nil) when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context) error
}

// FileSessionStore keeps the session as JSON in a file readable only by the
// owner, optionally sealed with a passphrase.
type FileSessionStore struct {
	path   string
	key    []byte
	keyErr error
	mu     sync.Mutex
}

// FileOption configures a FileSessionStore.
type FileOption func(*FileSessionStore)

// WithPassphrase seals the session file with a key derived from passphrase.
// A file sealed under another passphrase, or written in plain JSON, is
// treated as absent.
func WithPassphrase(passphrase string) FileOption {
	return func(f *FileSessionStore) {
		f.key, f.keyErr = secrets.DeriveKey(passphrase, sessionKeyPurpose)
	}
}

const sessionKeyPurpose = "ency-session-v1"

// NewFileSessionStore persists the session as JSON at path.
func NewFileSessionStore(path string, opts ...FileOption) *FileSessionStore {
	f := &FileSessionStore{path: path}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Load returns the stored session, or nil when there is none or it cannot
// be opened with the configured key.
func (f *FileSessionStore) Load(_ context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("toolkit: read session: %w", err)
	}
	if f.keyErr != nil {
		return nil, fmt.Errorf("toolkit: session key: %w", f.keyErr)
	}
	if f.key != nil {
		if raw, err = secrets.Open(f.key, raw); err != nil {
			return nil, nil
		}
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("toolkit: decode session: %w", err)
	}
	if s.UID == "" || s.RefreshToken == "" {
		return nil, nil
	}
	return &s, nil
}

// Save writes s atomically with 0600 permissions.
func (f *FileSessionStore) Save(_ context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("toolkit: encode session: %w", err)
	}

	if f.keyErr != nil {
		return fmt.Errorf("toolkit: session key: %w", f.keyErr)
	}
	if f.key != nil {
		if raw, err = secrets.Seal(f.key, raw); err != nil {
			return fmt.Errorf("toolkit: seal session: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("toolkit: create session dir: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("toolkit: write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("toolkit: replace session: %w", err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (f *FileSessionStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("toolkit: remove session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps the session for the lifetime of the process.
type MemorySessionStore struct {
	mu sync.Mutex
	s  *Session
}

// NewMemorySessionStore returns an empty in-process session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	c := *m.s
	return &c, nil
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *s
	m.s = &c
	return nil
}

func (m *MemorySessionStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
