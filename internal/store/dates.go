package store

import (
	"database/sql"
	"time"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{dateLayout, "2006-01", time.RFC3339}

// parseDate converts an editor date string to a nullable column value.
// Empty or unparsable input becomes NULL.
func parseDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sql.NullTime{Time: t, Valid: true}
		}
	}
	return sql.NullTime{}
}

func formatDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(dateLayout)
}
