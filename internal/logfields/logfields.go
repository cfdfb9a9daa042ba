package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyCode       = "code"
	KeyStatus     = "status"
	KeySeverity   = "severity"
	KeyKey        = "key"
	KeyCount      = "count"
	KeyWindow     = "window"
	KeyListenerID = "listener_id"
	KeyURL        = "url"
	KeyMethod     = "method"
	KeyRetryable  = "retryable"
	KeyNotifier   = "notifier"
	KeyPath       = "path"
	KeyAddr       = "addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Code(c string) slog.Attr          { return slog.String(KeyCode, c) }
func Status(s int) slog.Attr           { return slog.Int(KeyStatus, s) }
func Severity(s string) slog.Attr      { return slog.String(KeySeverity, s) }
func Key(k string) slog.Attr           { return slog.String(KeyKey, k) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Window(d time.Duration) slog.Attr { return slog.Duration(KeyWindow, d) }
func ListenerID(id string) slog.Attr   { return slog.String(KeyListenerID, id) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Retryable(r bool) slog.Attr       { return slog.Bool(KeyRetryable, r) }
func Notifier(name string) slog.Attr   { return slog.String(KeyNotifier, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Addr(a string) slog.Attr          { return slog.String(KeyAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
