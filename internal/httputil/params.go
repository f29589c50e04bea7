package httputil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDList parses a comma-separated list of integer IDs, as used by the
// ?tags= and ?ingredients= query parameters. An empty string yields nil.
func ParseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// ParseBoolFlag parses 0/1 style query flags such as ?assigned_only=1.
// Absent or empty values are false.
func ParseBoolFlag(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return false, fmt.Errorf("invalid flag %q", raw)
	}

	return n != 0, nil
}
