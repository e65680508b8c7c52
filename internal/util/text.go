package util

import "strings"

func SanitizePostgresText(value string) string {
	if value == "" {
		return value
	}

	sanitized := strings.ToValidUTF8(value, "")
	return strings.ReplaceAll(sanitized, "\x00", "")
}

// NormalizeID cleans an identifier taken from a request or a seed file.
func NormalizeID(value string) string {
	return strings.TrimSpace(SanitizePostgresText(value))
}
