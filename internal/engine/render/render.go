// Package render expands {variable} placeholders in template text.
package render

import (
	"strings"

	apperrors "vetcare-reminders/internal/common/errors"
)

// Render substitutes every {name} token in text with ctx[name]. An unresolved
// variable is a hard error: the engine never emits literal {name} text to a
// client. Rendering is deterministic for a given (text, ctx).
func Render(text string, ctx map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	rest := text
	for {
		start := strings.IndexByte(rest, '{')
		if start == -1 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			// Unterminated brace: treated as literal text.
			b.WriteString(rest)
			return b.String(), nil
		}
		end += start

		name := rest[start+1 : end]
		b.WriteString(rest[:start])

		if !validName(name) {
			// Not a variable token (empty or has spaces); keep it verbatim.
			b.WriteString(rest[start : end+1])
		} else {
			value, ok := ctx[name]
			if !ok {
				return "", apperrors.NewTemplateRenderError("unresolved variable: " + name)
			}
			b.WriteString(value)
		}
		rest = rest[end+1:]
	}
}

// Vars returns the declared variable names in text, in first-appearance order
// without duplicates.
func Vars(text string) []string {
	var names []string
	seen := map[string]bool{}

	rest := text
	for {
		start := strings.IndexByte(rest, '{')
		if start == -1 {
			return names
		}
		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			return names
		}
		end += start

		name := rest[start+1 : end]
		if validName(name) && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		rest = rest[end+1:]
	}
}

// NeedsRender reports whether text still carries at least one variable token.
func NeedsRender(text string) bool {
	return len(Vars(text)) > 0
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
