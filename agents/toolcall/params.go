/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"fmt"
	"maps"
)

// Param extracts a required argument from the call.
// On failure it returns an error observation to send back to the model.
func Param[T any](call ToolCall, name string) (T, map[string]any) {
	v, err := Extract[T](call.Args, name)
	if err != nil {
		return v, Error("%s", err)
	}
	return v, nil
}

// OptionalParam extracts an optional argument, falling back to defaultValue.
func OptionalParam[T any](call ToolCall, name string, defaultValue T) (T, map[string]any) {
	if _, ok := call.Args[name]; !ok {
		return defaultValue, nil
	}
	return Param[T](call, name)
}

// Extract extracts a required argument from args with type safety.
// JSON numbers convert to int/int64, and JSON arrays of strings to []string.
func Extract[T any](args map[string]any, name string) (T, error) {
	var zero T

	value, exists := args[name]
	if !exists {
		return zero, fmt.Errorf("%s parameter is required", name)
	}
	if v, ok := value.(T); ok {
		return v, nil
	}
	if v, ok := convert[T](value); ok {
		return v, nil
	}
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

func convert[T any](value any) (T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		if f, ok := value.(float64); ok {
			return any(int(f)).(T), true
		}
	case int64:
		if f, ok := value.(float64); ok {
			return any(int64(f)).(T), true
		}
	case []string:
		raw, ok := value.([]any)
		if !ok {
			return zero, false
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			s, ok := r.(string)
			if !ok {
				return zero, false
			}
			out = append(out, s)
		}
		return any(out).(T), true
	}
	return zero, false
}

// Error creates an error observation.
func Error(format string, args ...any) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(format, args...),
	}
}

// ErrorWithContext creates an error observation with additional fields.
func ErrorWithContext(err error, context map[string]any) map[string]any {
	response := map[string]any{
		"error": err.Error(),
	}
	maps.Copy(response, context)
	return response
}
