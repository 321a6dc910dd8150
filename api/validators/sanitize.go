package validators

import "strings"

// SanitizeString trims surrounding whitespace and caps the value at
// maxLen bytes. A non-positive maxLen disables the cap.
func SanitizeString(input string, maxLen int) string {
	value := strings.TrimSpace(input)
	if maxLen > 0 && len(value) > maxLen {
		value = value[:maxLen]
	}
	return value
}
