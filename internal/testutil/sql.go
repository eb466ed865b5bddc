package testutil

import "database/sql"

// NullInt64 wraps a value in a valid sql.NullInt64.
func NullInt64(value int64) sql.NullInt64 {
	return sql.NullInt64{Int64: value, Valid: true}
}
