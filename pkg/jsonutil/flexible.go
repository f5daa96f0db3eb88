package jsonutil

import (
	"encoding/json"
	"fmt"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling
// callers that send numbers or booleans where a string is expected.
// Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleParameterMap parses report parameter metadata that may arrive as a
// JSON object, as a JSON string containing serialized JSON (double-encoded by
// older clients), or as anything else. Malformed metadata degrades to an
// empty map rather than failing the request.
func FlexibleParameterMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj
	}

	// Double-encoded: a JSON string whose contents are a JSON object.
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &obj); err == nil && obj != nil {
			return obj
		}
	}

	return map[string]any{}
}

// ParameterMapFromString parses parameter metadata stored as text, as older
// catalog rows hold it. Malformed text degrades to an empty map.
func ParameterMapFromString(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return map[string]any{}
	}
	return obj
}
