// Package enums holds the string-backed domain enumerations stored in the
// database and accepted over the API.
package enums

import (
	"fmt"
	"slices"
)

// parse maps raw onto a member of set, naming kind in the error.
func parse[T ~string](kind, raw string, set []T) (T, error) {
	if v := T(raw); slices.Contains(set, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
