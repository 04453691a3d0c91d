package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyLang       = "lang"
	KeyResource   = "resource"
	KeyKind       = "kind"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyBuildID    = "build_id"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Lang(l string) slog.Attr         { return slog.String(KeyLang, l) }
func Resource(r string) slog.Attr     { return slog.String(KeyResource, r) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Since records the elapsed milliseconds from start.
func Since(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
