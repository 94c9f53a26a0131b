// Copyright 2025, the fabdeploy authors.  All rights reserved.

package deploy

import (
	"regexp"
)

// Substitution is deliberately a single textual pass: each `{{name}}` token is replaced with the
// active environment's value for `name`, and substituted values are never re-scanned for further
// tokens, so the result does not depend on parameter iteration order.

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// SubstituteParameters replaces `{{name}}` placeholders in text with values from params.  Unknown
// placeholders are left in place; Unresolved reports them.
func SubstituteParameters(text string, params map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		name := token[2 : len(token)-2]
		if value, has := params[name]; has {
			return value
		}
		return token
	})
}

// Unresolved lists the placeholder names remaining in text after substitution, in first-appearance
// order.  Unresolved placeholders are a warning, not a hard failure: the platform rejects payloads
// that are truly invalid.
func Unresolved(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
