package usecase

import (
	"encoding/json"
	"fmt"
)

// decodeLoose parses a model reply as JSON: first as-is, then by extracting
// the first balanced {...} substring from prose-wrapped output.
func decodeLoose(reply string, v any) error {
	if err := json.Unmarshal([]byte(reply), v); err == nil {
		return nil
	}

	object, ok := firstJSONObject(reply)
	if !ok {
		return fmt.Errorf("no JSON object found in reply")
	}
	if err := json.Unmarshal([]byte(object), v); err != nil {
		return fmt.Errorf("parse extracted object: %w", err)
	}
	return nil
}

// firstJSONObject scans for the first balanced top-level JSON object,
// honoring string literals and escapes so braces inside values do not
// confuse the depth counter.
func firstJSONObject(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

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
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}

	return "", false
}
