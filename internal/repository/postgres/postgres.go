package postgres

import "strings"

// nullIfEmpty maps "" to NULL so partially-provisioned records do not collide
// on unique remote_id indexes.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// orEmpty maps a nullable text column back to the domain's zero value.
func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
