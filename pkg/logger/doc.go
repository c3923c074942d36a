// Package logger builds *slog.Logger values for ency binaries and libraries.
//
// New assembles a text or JSON handler from functional options and wraps it in
// a decorator that pulls attributes out of context.Context on every record.
// Attribute helpers in attr.go keep key names consistent across packages, so
// the auth core, the provider client and the emulator all log "uid", "op" and
// "error_kind" the same way.
//
//	log := logger.New(logger.WithEnvironment("development", "ency"))
//	log.InfoContext(ctx, "signed in", logger.UID(u.UID), logger.Op("sign_in"))
//
// Helpers that receive a nil or empty value return an empty slog.Attr, which
// slog drops, so callers never need a nil check before logging an error.
package logger
