package sqlite

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// SQLite's built-in LOWER folds ASCII only. Replacing it keeps
// case-insensitive filters working for names such as "Åland" or "Égypte",
// matching what PostgreSQL's LOWER does for the same templates.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("lower", 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		// Numbers pass through unchanged, as with the built-in.
		return v, nil
	}
}
