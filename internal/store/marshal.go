package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalDocument converts a battle config or result to JSON TEXT for
// storage. HTML escaping is disabled so stored text matches what the
// event wire format produces.
func marshalDocument(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDocument parses JSON TEXT into v. Empty text leaves v alone.
func unmarshalDocument(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}
