package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error logs err under "error". A nil error yields an empty attribute, which
// slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}

// Feature accepts any string-based key, e.g. limits.FeatureKey.
func Feature[T ~string](key T) slog.Attr {
	return slog.String("feature", string(key))
}

func Plan[T ~string](plan T) slog.Attr {
	return slog.String("plan", string(plan))
}

// Amount logs a usage delta.
func Amount(n int64) slog.Attr {
	return slog.Int64("amount", n)
}

// RequestID returns an empty attribute for an empty id.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}
