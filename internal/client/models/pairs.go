package models

import (
	"errors"
	"strconv"
	"strings"
)

var ErrIncorrectPair = errors.New("item must be name=value")

// ParseMetadata parses name=value items into a string map.
func ParseMetadata(items []string) (map[string]string, error) {
	data := make(map[string]string, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, ErrIncorrectPair
		}
		data[name] = value
	}
	return data, nil
}

// ParsePayload parses name=value items into document fields. Values that look
// like integers, floats or booleans are stored as such; everything else is a string.
func ParsePayload(items []string) (map[string]any, error) {
	data := make(map[string]any, len(items))
	for _, item := range items {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			return nil, ErrIncorrectPair
		}
		data[name] = parseScalar(value)
	}
	return data, nil
}

func parseScalar(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
