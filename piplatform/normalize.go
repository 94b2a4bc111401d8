package piplatform

import "encoding/json"

// ParseBody parses an upstream response body as JSON. Malformed bodies are
// wrapped under a "raw" key instead of failing; the platform occasionally
// returns plain text and that must not crash the caller.
func ParseBody(raw []byte) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed == nil {
		return map[string]any{"raw": string(raw)}
	}
	return parsed
}

// ExtractError pulls a human-readable error out of a parsed body. The platform
// is inconsistent about where the message lives, so this checks top-level
// "error", top-level "message", then the same two keys under a nested "data"
// object, and finally falls back to the supplied string.
func ExtractError(body map[string]any, fallback string) string {
	if msg := stringField(body, "error"); msg != "" {
		return msg
	}
	if msg := stringField(body, "message"); msg != "" {
		return msg
	}
	if data, ok := body["data"].(map[string]any); ok {
		if msg := stringField(data, "error"); msg != "" {
			return msg
		}
		if msg := stringField(data, "message"); msg != "" {
			return msg
		}
	}
	return fallback
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
