package utils

import "strings"

// FirstJSONObject returns the outermost {...} block of text, or "" when
// there is none. Models often wrap JSON answers in prose or code fences.
func FirstJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}
