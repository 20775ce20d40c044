// Package util provides helpers for the string arguments hosts pass with
// commands.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// CleanArg strips surrounding quotes and unescapes inner ones.
func CleanArg(s string) string {
	return FixEscapeQuotes(TrimQuotes(strings.TrimSpace(s)))
}

// ParseStringList parses a stringified array of quoted strings.
// Input format: ["a","b","c"]
// Input that is not an array is returned as a single element, so a bare
// name and a one-element list are equivalent. Empty entries are dropped.
func ParseStringList(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		if c := CleanArg(s); c != "" {
			return []string{c}
		}
		return nil
	}

	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(inner, ",") {
		if c := CleanArg(part); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// Contains reports whether str is in slice.
func Contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
