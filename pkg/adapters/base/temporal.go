package base

import "strings"

// IsDateOnly reports whether s looks like a bare YYYY-MM-DD date: ten
// characters, two dashes, no 'T' and no ':'.
func IsDateOnly(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == 10 &&
		strings.Count(s, "-") == 2 &&
		!strings.ContainsAny(s, "Tt:")
}

// IsTimestampType reports whether a native type name stores a date and a time.
func IsTimestampType(nativeType string) bool {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	switch {
	case strings.HasPrefix(t, "timestamp"):
		return true
	case t == "datetime", t == "datetime2", t == "smalldatetime", t == "datetimeoffset":
		return true
	}
	return false
}
