package recordstore

import (
	"fmt"
	"strings"
)

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Equals builds a filter matching rows whose field equals the text literal.
func Equals(fieldID int, value string) string {
	return fmt.Sprintf("{%d.EX.'%s'}", fieldID, literalEscaper.Replace(value))
}

// EqualsInt builds a filter matching rows whose field equals the number.
func EqualsInt(fieldID int, value int64) string {
	return fmt.Sprintf("{%d.EX.%d}", fieldID, value)
}
