// Package normalize salvages a single JSON object from noisy model output.
//
// Models wrap JSON in code fences, add prose before or after it, and emit
// raw newlines inside string values. Extract tries, in order:
//
//  1. strip a leading fence (with optional language tag) and a trailing fence
//  2. collapse CR/LF runs to a single space
//  3. strict parse of the cleaned text
//  4. strict parse of the first '{' through the last '}'
//
// and reports failure rather than returning an error. It never panics.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Extract returns the JSON object found in raw. ok is false when no object
// could be parsed; any input without both braces is always a failure.
func Extract(raw string) (Fields, bool) {
	cleaned := collapseNewlines(stripFences(raw))
	if cleaned == "" {
		return nil, false
	}

	if f, ok := parseObject(cleaned); ok {
		return f, true
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(cleaned[start : end+1])
}

// Clean applies the fence and newline steps without parsing, for logging
// output that did not parse.
func Clean(raw string) string {
	return collapseNewlines(stripFences(raw))
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[3:]
		// Optional language tag: json, JSON, js...
		i := 0
		for i < len(s) && isTagByte(s[i]) {
			i++
		}
		s = s[i:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isTagByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func collapseNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if r == '\r' || r == '\n' {
			if !inRun {
				b.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

func parseObject(s string) (Fields, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var f Fields
	if err := json.Unmarshal([]byte(s), &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// Marshal is the inverse used by result types: compact JSON with no HTML
// escaping, so Extract(Marshal(v)) yields the same fields.
func Marshal(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
