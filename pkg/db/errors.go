package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// violation. With a constraint name the match narrows to that constraint;
// without one any duplicate-key error matches.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	return strings.Contains(msg, "duplicate key value")
}
