// Package identity defines the boundary between ency and the hosted identity
// provider: the Provider contract consumed by the auth core, the provider's
// view of a signed-in user, and the sentinel errors every provider
// implementation maps its wire-level error codes onto.
//
// Implementations live in sub-packages: toolkit talks to the hosted REST API,
// federated obtains third-party ID tokens, and emulator serves the same REST
// API locally.
package identity
