package common

import "strconv"

// ParseInt64 converts a string id to int64, reporting whether it parsed.
func ParseInt64(value string) (int64, bool) {
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
