package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList decodes from either a JSON array of strings or a single string,
// so a request may send "assignedTo": "<id>" as well as a list.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*s = StringList{}
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var values []string
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
		*s = values
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return fmt.Errorf("decode string list: %w", err)
		}
		if value = strings.TrimSpace(value); value == "" {
			*s = StringList{}
			return nil
		}
		*s = StringList{value}
		return nil
	default:
		return fmt.Errorf("cannot decode %s into a string list", trimmed)
	}
}
