// Package template substitutes story fields into {{fieldName}} tokens.
package template

import (
	"regexp"
)

var tokenExpr = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Fill replaces every {{fieldName}} token whose name exists in values with
// that value's text. Tokens without a matching key are left verbatim and
// reported once each, in order of first occurrence. Fill never fails.
func Fill(values map[string]string, text string) (string, []string) {
	var missing []string
	seen := map[string]bool{}

	filled := tokenExpr.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-2]
		if value, ok := values[name]; ok {
			return value
		}
		if !seen[name] {
			seen[name] = true
			missing = append(missing, name)
		}
		return token
	})

	return filled, missing
}
