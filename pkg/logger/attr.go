package logger

import (
	"log/slog"
	"time"
)

// Error records err under the key "error".
// A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the emitting package or subsystem.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UID records the provider-assigned user identifier.
// An empty uid yields an empty Attr.
func UID(uid string) slog.Attr {
	if uid == "" {
		return slog.Attr{}
	}
	return slog.String("uid", uid)
}

// Email records an email address. Only use it at debug level.
func Email(email string) slog.Attr {
	if email == "" {
		return slog.Attr{}
	}
	return slog.String("email", email)
}

// Op records the auth operation name (sign_up, sign_in, ...).
func Op(name string) slog.Attr {
	return slog.String("op", name)
}

// Kind records a classified error kind.
func Kind(kind string) slog.Attr {
	return slog.String("error_kind", kind)
}

// Provider records an identity provider id such as "password" or "google.com".
func Provider(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("provider", id)
}

// Store records the profile store backend name.
func Store(name string) slog.Attr {
	return slog.String("store", name)
}

// Duration records d in milliseconds under the key "duration_ms".
func Duration(d time.Duration) slog.Attr {
	return slog.Int64("duration_ms", d.Milliseconds())
}

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}
