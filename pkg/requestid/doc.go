// Package requestid correlates the two ends of a provider call.
//
// Transport stamps every outgoing request with an X-Request-ID header, taken
// from the request context or freshly generated. Middleware accepts a valid
// incoming ID (or generates one), echoes it in the response and stores it in
// the context. LoggerExtractor lets pkg/logger attach it to every record, so
// a client log line and the emulator log line for the same call share an ID.
package requestid
