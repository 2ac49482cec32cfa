package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// HouseSortFields contains allowed sort fields for houses
var HouseSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"address":    true,
}

// orderClause builds a whitelisted ORDER BY clause. id is appended as a tie
// breaker so pages stay stable.
func orderClause(orderBy, orderDir string, allowed map[string]bool) string {
	field := ValidateSortField(orderBy, allowed, "id")
	dir := ValidateSortOrder(orderDir)
	if field == "id" {
		return "id " + dir
	}
	return field + " " + dir + ", id ASC"
}
