package flow

import (
	"regexp"
	"strings"
)

var (
	placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_\-]+)\}`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
	inlineSpaceRe = regexp.MustCompile(`[ \t]{2,}`)
)

// Render substitutes named placeholders in a template with values drawn from
// the collected field map. Substitution is a pure function over its inputs:
//
//  1. every alias of every known field is resolved to the current value,
//  2. an exact-match pass replaces {placeholder} tokens,
//  3. a case-insensitive pass replaces any token still present,
//  4. unresolved tokens are removed, except name-like tokens which fall back
//     to any available name value.
//
// The result never contains a literal {placeholder} shown to the end user.
func Render(template string, fields map[string]string) string {
	if template == "" {
		return ""
	}
	values := aliasValues(fields)
	lowered := make(map[string]string, len(values))
	for k, v := range values {
		lowered[strings.ToLower(k)] = v
	}
	nameValue := nameFallback(fields)

	out := placeholderRe.ReplaceAllStringFunc(template, func(token string) string {
		key := strings.Trim(token, "{}")
		if v, ok := values[key]; ok {
			return v
		}
		if v, ok := lowered[strings.ToLower(key)]; ok {
			return v
		}
		if nameValue != "" && looksLikeNameToken(key) {
			return nameValue
		}
		return ""
	})

	return tidy(out)
}

// aliasValues expands the field map so each value is reachable under every
// accepted spelling of its semantic field.
func aliasValues(fields map[string]string) map[string]string {
	values := make(map[string]string, len(fields)*4)
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		for _, alias := range AliasKeys(k) {
			if _, exists := values[alias]; !exists {
				values[alias] = v
			}
		}
		// The literal key always wins over an alias expansion.
		values[k] = v
	}
	return values
}

// nameFallback finds a value for the user's name anywhere in the field map.
func nameFallback(fields map[string]string) string {
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if CanonicalField(k) == "identification" || looksLikeNameToken(k) {
			return v
		}
	}
	return ""
}

// tidy normalizes escaped newlines, collapses redundant whitespace and trims
// the ends of the rendered message.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(inlineSpaceRe.ReplaceAllString(line, " "), " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
