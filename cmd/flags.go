package cmd

import (
	"fmt"
	"strings"
)

// parseKeyValue splits a key=value flag value
func parseKeyValue(pair string) (key, value string, err error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid key=value pair %q", pair)
	}
	return key, value, nil
}

// parseKeyValues turns repeated key=value flags into a map. Later pairs
// win.
func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, err := parseKeyValue(pair)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}
