package sqlite

import "strings"

// isUniqueViolation detects the unique-index violation raised when a
// second open conflict for the same pair is inserted concurrently.
// modernc.org/sqlite surfaces constraint failures in the error text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT_UNIQUE") ||
		strings.Contains(msg, "constraint failed: conflicts")
}
