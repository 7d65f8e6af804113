// Package sqlpath holds the path helpers shared by the SQL backends.
package sqlpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidTable = errors.New("sql backend: invalid table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTable accepts plain identifiers only, since table names are formatted into queries.
func ValidateTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

// Descendants returns a LIKE pattern (backslash escaped) matching every path beneath path.
// The empty path matches everything.
func Descendants(path string) string {
	if path == "" {
		return "%"
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(path) + ".%"
}
