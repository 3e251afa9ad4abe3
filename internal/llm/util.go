package llm

import "strings"

// CleanJSONBlock removes markdown code fences and any prose around the first
// JSON object or array in a model response.
func CleanJSONBlock(text string) string {
	text = stripFences(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if end := matchingClose(text, start); end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text[start:])
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Skip a language identifier on the first line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		firstLine := text[:idx]
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// matchingClose returns the index of the bracket closing the one at start,
// ignoring brackets inside string literals, or -1.
func matchingClose(text string, start int) int {
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
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
