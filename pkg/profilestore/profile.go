// Package profilestore persists user profile documents keyed by uid.
//
// Every backend implements Store with full-replace semantics: Set overwrites
// the whole document, Get returns ErrNotFound when nothing is stored under the
// uid. CachedStore decorates any Store with a TTL read cache.
package profilestore

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("profilestore: profile not found")
	ErrEmptyUID = errors.New("profilestore: empty uid")
)

// Profile is the stored user document.
type Profile struct {
	UID   string `json:"uid" bson:"uid"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
}

// Store reads and writes profiles.
type Store interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Set(ctx context.Context, uid string, p Profile) error
}
