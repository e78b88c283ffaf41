package sqlite

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	msqlite "modernc.org/sqlite"
)

// foldFunc is the SQL name of the Unicode case-folding function.
//
// WHY NOT LOWER() OR LIKE?
// SQLite's built-in LOWER() and the case-insensitivity of LIKE only know
// ASCII, so "émile" would never match "Émile Zola". Registering a Go
// function gives the queries full Unicode case folding.
const foldFunc = "casefold"

// The driver keeps registered functions in a global table and installs them
// on every connection it opens, so this must run before sql.Open.
func init() {
	if err := msqlite.RegisterDeterministicScalarFunction(foldFunc, 1, foldScalar); err != nil {
		panic(fmt.Sprintf("sqlite: registering %s: %v", foldFunc, err))
	}
}

// foldScalar is casefold(x). NULL stays NULL and non-text values pass
// through untouched.
func foldScalar(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldText(v), nil
	case []byte:
		return foldText(string(v)), nil
	default:
		return v, nil
	}
}

// foldText applies Unicode case folding. A cases.Caser carries state, so
// each call gets its own.
func foldText(s string) string {
	return cases.Fold().String(s)
}
