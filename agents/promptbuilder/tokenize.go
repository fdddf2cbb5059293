/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// scan calls visit for every placeholder in template, in order.
func scan(template string, visit func(name string) error) error {
	_, err := walk(template, func(name string) (string, error) {
		return "", visit(name)
	})
	return err
}

// substitute replaces every placeholder with its value in one pass.
func substitute(template string, values map[string]string) (string, error) {
	return walk(template, func(name string) (string, error) {
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("internal error: no value for %q", name)
		}
		return v, nil
	})
}

func walk(template string, resolve func(name string) (string, error)) (string, error) {
	var out strings.Builder
	for {
		start := strings.Index(template, "{{")
		if start < 0 {
			out.WriteString(template)
			return out.String(), nil
		}
		out.WriteString(template[:start])

		end := strings.Index(template[start:], "}}")
		if end < 0 {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		name := strings.TrimSpace(template[start+2 : start+end])
		if !isIdentifier(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		v, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(v)
		template = template[start+end+2:]
	}
}

// isIdentifier reports whether s starts with a letter and continues with
// letters, digits or underscores.
func isIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}
