// Package formatter pretty-prints JSON pasted from flow run outputs.
package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyInput is returned for blank input
var ErrEmptyInput = errors.New("no JSON to format")

// Pretty re-indents raw with two spaces. Key order and number literals are
// kept as written.
func Pretty(raw string) (string, error) {
	src := bytes.TrimSpace([]byte(raw))
	if len(src) == 0 {
		return "", ErrEmptyInput
	}
	var out bytes.Buffer
	if err := json.Indent(&out, src, "", "  "); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return "", fmt.Errorf("invalid JSON at offset %d: %w", syn.Offset, err)
		}
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return out.String(), nil
}

// Compact removes insignificant whitespace from raw
func Compact(raw string) (string, error) {
	var out bytes.Buffer
	if err := json.Compact(&out, bytes.TrimSpace([]byte(raw))); err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return out.String(), nil
}
