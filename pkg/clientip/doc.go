// Package clientip resolves the address of the client that sent a request.
//
// FromRequest honours X-Forwarded-For and X-Real-IP before falling back to
// the TCP peer, which suits services running behind a local reverse proxy.
// PeerIP ignores headers entirely. Middleware stores the resolved address in
// the request context, where FromContext and LoggerExtractor read it.
package clientip
