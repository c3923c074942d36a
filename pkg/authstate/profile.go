package authstate

import (
	"context"
	"errors"

	"github.com/dmitrymomot/ency/pkg/identity"
	"github.com/dmitrymomot/ency/pkg/logger"
	"github.com/dmitrymomot/ency/pkg/profilestore"
)

// createProfile writes the profile document for u, replacing any existing
// one, and returns u unchanged.
func (c *Core) createProfile(ctx context.Context, op string, u User) (User, error) {
	err := c.store.Set(ctx, u.UID, profilestore.Profile{
		UID:   u.UID,
		Email: u.Email,
		Name:  u.Name,
	})
	if err != nil {
		return User{}, c.storeError(ctx, op, err)
	}
	c.log.DebugContext(ctx, "profile written", logger.Op(op), logger.UID(u.UID))
	return u, nil
}

// mergeProfile overlays stored fields on the live user. The verification
// flag stays the live one.
func mergeProfile(live User, p *profilestore.Profile) User {
	merged := live
	if p.Email != "" {
		merged.Email = p.Email
	}
	if p.Name != "" {
		merged.Name = p.Name
	}
	return merged
}

// fetchProfile reads the stored profile of pu and merges it into the current
// user, provided the user has not been replaced since generation gen. A
// missing document is not an error. It returns the resulting current user.
func (c *Core) fetchProfile(ctx context.Context, pu *identity.User, gen uint64) User {
	p, err := c.store.Get(ctx, pu.UID)
	switch {
	case errors.Is(err, profilestore.ErrNotFound):
		c.log.DebugContext(ctx, "no stored profile yet", logger.UID(pu.UID))
		return c.User()
	case err != nil:
		c.log.WarnContext(ctx, "profile fetch failed", logger.UID(pu.UID), logger.Error(err))
		return c.User()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.user.UID != pu.UID {
		c.log.DebugContext(ctx, "stale profile discarded", logger.UID(pu.UID))
		return c.user
	}

	live := User{UID: pu.UID, Email: pu.Email, IsVerified: pu.EmailVerified}
	c.replaceLocked(mergeProfile(live, p))
	c.publishLocked()
	return c.user
}
