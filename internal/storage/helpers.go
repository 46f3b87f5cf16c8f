package storage

import (
	"errors"
	"time"
)

// NullString converts empty strings to SQL NULL.
func NullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullTime converts nil times to SQL NULL, formatting otherwise.
func NullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

// FormatTime renders a timestamp in the canonical storage format.
func FormatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

// BoolToInt converts a bool to its SQLite integer representation.
func BoolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// ParseTime reads a timestamp in either canonical or legacy storage format.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// Placeholders builds a comma-separated "?" list for IN clauses.
func Placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
