package service

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the first well-formed top-level JSON object embedded in text.
// Models often wrap the payload in prose or markdown fences, so each top-level '{' is
// matched to its balanced closing brace, ignoring braces inside string literals.
// Objects nested inside a rejected candidate are never returned, so cut-off output
// yields "" instead of an inner fragment.
func ExtractJSONObject(text string) string {
	for start := strings.IndexByte(text, '{'); start != -1; {
		end := matchingBrace(text, start)
		if end == -1 {
			return ""
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}

		next := strings.IndexByte(text[end+1:], '{')
		if next == -1 {
			break
		}
		start = end + 1 + next
	}
	return ""
}

// matchingBrace returns the index of the brace closing the object opened at start, or -1
func matchingBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripCodeFences removes a surrounding ```json ... ``` fence
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return strings.Trim(trimmed, "`")
	}
	body := trimmed[firstNewline+1:]
	if lastFence := strings.LastIndex(body, "```"); lastFence != -1 {
		body = body[:lastFence]
	}
	return strings.TrimSpace(body)
}
