package models

import (
	"errors"
	"strings"
)

// ErrMalformedTemplate is returned for templates with unbalanced or empty placeholders.
var ErrMalformedTemplate = errors.New("malformed path template")

// Placeholders returns the {name} placeholders of a path template in order of
// appearance.
func Placeholders(template string) ([]string, error) {
	var names []string
	rest := template
	for {
		open := strings.IndexAny(rest, "{}")
		if open < 0 {
			return names, nil
		}
		if rest[open] == '}' {
			return nil, ErrMalformedTemplate
		}
		end := strings.IndexAny(rest[open+1:], "{}")
		if end < 0 || rest[open+1+end] == '{' || end == 0 {
			return nil, ErrMalformedTemplate
		}
		names = append(names, rest[open+1:open+1+end])
		rest = rest[open+1+end+1:]
	}
}
