package classify

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// extractMessage pulls a human readable message out of a response body.
//
// Priority: a string body, then data.message, data.error.message, data.error (when a
// string) and data.errors[0].message. An empty result means the registry default applies.
func extractMessage(data any) string {
	switch d := data.(type) {
	case string:
		return clean(d)
	case map[string]any:
		if s := clean(stringValue(d["message"])); s != "" {
			return s
		}
		switch e := d["error"].(type) {
		case map[string]any:
			if s := clean(stringValue(e["message"])); s != "" {
				return s
			}
		case string:
			if s := clean(e); s != "" {
				return s
			}
		}
		if first, ok := firstError(d["errors"]); ok {
			return clean(stringValue(first["message"]))
		}
	}
	return ""
}

func firstError(v any) (map[string]any, bool) {
	switch list := v.(type) {
	case []any:
		if len(list) > 0 {
			m, ok := list[0].(map[string]any)
			return m, ok
		}
	case []map[string]any:
		if len(list) > 0 {
			return list[0], true
		}
	}
	return nil, false
}

// clean trims and NFC-normalizes server supplied text so that equal messages
// compare equal regardless of how the backend composed them.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
