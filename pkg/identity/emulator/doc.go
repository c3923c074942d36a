// Package emulator serves the identity REST protocol from memory so the CLI
// and tests can run without the hosted service.
//
// Passwords are bcrypt hashed, ID tokens are HS256 JWTs signed with the
// configured key, and refresh tokens are opaque. Verification emails are not
// sent: issued codes are listed on GET /emulator/v1/oobCodes and confirmed
// through accounts:update with the oobCode.
//
// Every request gets an X-Request-ID and a resolved client IP in its context.
// With Config.RateLimit set, identity and token routes are throttled per IP
// and answer 429 TOO_MANY_ATTEMPTS_TRY_LATER.
//
// signInWithIdp trusts the claims of the posted id_token without checking
// its signature. Never expose the emulator outside a development machine.
package emulator
