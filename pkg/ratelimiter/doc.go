// Package ratelimiter implements a token bucket limiter keyed by an
// arbitrary string, an in-memory bucket store and HTTP middleware.
//
// The identity emulator uses it to throttle clients by IP so that the
// provider's TOO_MANY_ATTEMPTS_TRY_LATER path can be exercised locally:
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       20,
//		RefillRate:     20,
//		RefillInterval: time.Minute,
//	})
//	if err != nil {
//		return err
//	}
//	r.Use(ratelimiter.Middleware(limiter, clientip.FromRequest, onLimit))
//
// A Result with negative Remaining means the request is denied.
package ratelimiter
