// Package jsonutil extracts JSON from agent replies that may wrap it in
// markdown code fences or surround it with prose.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a reply holds no JSON object or array.
var ErrNoJSON = errors.New("no JSON content found")

// StripMarkdownFences returns the body of the first ``` fenced block, or the
// trimmed text when there is none. The language tag after the opening fence
// is dropped.
func StripMarkdownFences(text string) string {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "```")
	if open == -1 {
		return text
	}
	body := text[open+3:]
	nl := strings.IndexByte(body, '\n')
	if nl == -1 {
		return text
	}
	body = body[nl+1:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ExtractJSON returns the first balanced JSON object or array in text.
// Brackets inside string literals are ignored, so prose after the value
// never extends it.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	for start != -1 {
		if end, ok := balancedEnd(text[start:]); ok {
			return text[start : start+end], nil
		}
		next := strings.IndexAny(text[start+1:], "{[")
		if next == -1 {
			break
		}
		start += next + 1
	}
	if strings.ContainsAny(text, "{[") {
		return "", fmt.Errorf("%w: unbalanced brackets", ErrNoJSON)
	}
	return "", ErrNoJSON
}

// balancedEnd returns the length of the bracketed value at the start of s.
func balancedEnd(s string) (int, bool) {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// ParseJSON strips markdown fences from a reply, extracts the JSON object or
// array, and unmarshals it into T.
func ParseJSON[T any](raw string) (T, error) {
	var zero T
	jsonStr, err := ExtractJSON(StripMarkdownFences(raw))
	if err != nil {
		return zero, fmt.Errorf("%w (raw length: %d)", err, len(raw))
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		preview := jsonStr
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return zero, fmt.Errorf("invalid JSON: %w (text: %s)", err, preview)
	}
	return result, nil
}
