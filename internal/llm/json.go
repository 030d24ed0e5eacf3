package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON strips markdown code fences models like to wrap JSON in.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// ParseObject decodes a model answer that is expected to be a JSON object.
func ParseObject(raw string) (map[string]any, error) {
	cleaned := ExtractJSON(raw)

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("parse model response: expected an object")
	}
	return data, nil
}
